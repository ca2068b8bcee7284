package registration

import (
	"github.com/vpgclub/clubbot/internal/dialog"
	"github.com/vpgclub/clubbot/internal/platform"
)

// Answer keys of the registration dialog
const (
	keyGamerTag     = "gamer_tag"
	keyPrimaryPos   = "primary_position"
	keySecondaryPos = "secondary_position"
	keyAvailability = "availability"
	keyFormerClub   = "former_club"
	keyCompetitions = "competitions"
	keyExperience   = "experience"
)

var positions = []platform.SelectOption{
	{Label: "Goalkeeper (GK)", Value: "GK"},
	{Label: "Centre Back (CB)", Value: "CB"},
	{Label: "Left Back (LB)", Value: "LB"},
	{Label: "Right Back (RB)", Value: "RB"},
	{Label: "Defensive Midfielder (CDM)", Value: "CDM"},
	{Label: "Central Midfielder (CM)", Value: "CM"},
	{Label: "Attacking Midfielder (CAM)", Value: "CAM"},
	{Label: "Left Winger (LW)", Value: "LW"},
	{Label: "Right Winger (RW)", Value: "RW"},
	{Label: "Striker (ST)", Value: "ST"},
}

var secondaryPositions = append([]platform.SelectOption{{Label: "None", Value: "None"}}, positions...)

var days = []platform.SelectOption{
	{Label: "Monday", Value: "Monday", Emoji: "🇱"},
	{Label: "Tuesday", Value: "Tuesday", Emoji: "🇲"},
	{Label: "Wednesday", Value: "Wednesday", Emoji: "🇼"},
	{Label: "Thursday", Value: "Thursday", Emoji: "🇹"},
}

var competitions = []platform.SelectOption{
	{Label: "VPG France", Value: "VPGF"},
	{Label: "VPG Belgium", Value: "VPGB"},
	{Label: "VPG Europe", Value: "VPGE"},
	{Label: "VPG Switzerland", Value: "VPGS"},
	{Label: "ePRO LEAGUE", Value: "EPL"},
	{Label: "VFT", Value: "VFT"},
	{Label: "IFC", Value: "IFC"},
	{Label: "FVPA", Value: "FVPA"},
	{Label: "No competition played", Value: "None"},
}

// questionSteps is the fixed registration questionnaire, asked in order
func questionSteps() []dialog.Step {
	return []dialog.Step{
		{Key: keyGamerTag, Kind: dialog.StepText,
			Prompt: "what is your main in-game name (GT/PSN/EA ID)?"},
		{Key: keyPrimaryPos, Kind: dialog.StepSelect,
			Prompt: "primary position?", Options: positions},
		{Key: keySecondaryPos, Kind: dialog.StepSelect,
			Prompt: "secondary position?", Options: secondaryPositions},
		{Key: keyAvailability, Kind: dialog.StepSelect,
			Prompt:  "evening availability? (several choices possible)",
			Options: days, MaxValues: len(days)},
		{Key: keyFormerClub, Kind: dialog.StepText,
			Prompt: "last pro club? (or 'None')"},
		{Key: keyCompetitions, Kind: dialog.StepSelect,
			Prompt:  "competitions played? (several choices possible)",
			Options: competitions, MaxValues: len(competitions)},
		{Key: keyExperience, Kind: dialog.StepText,
			Prompt: "describe your club pro experience (divisions, play style, years...):"},
	}
}
