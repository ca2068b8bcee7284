package registration

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/vpgclub/clubbot/internal/capability"
	"github.com/vpgclub/clubbot/internal/dependencies/mocks"
	"github.com/vpgclub/clubbot/internal/dialog"
	"github.com/vpgclub/clubbot/internal/model"
	"github.com/vpgclub/clubbot/internal/platform"
	"github.com/vpgclub/clubbot/internal/platform/platformtest"
	"github.com/vpgclub/clubbot/internal/session"
	"github.com/vpgclub/clubbot/internal/storage/memory"
	"github.com/vpgclub/clubbot/internal/testutil"
)

const (
	verifiedRole = model.RoleID("role-verified")
	trialRole    = model.RoleID("role-trial")

	regChannel  = model.ChannelID("chan-reg")
	presChannel = model.ChannelID("chan-pres")
)

type ManagerSuite struct {
	suite.Suite
	client     *platformtest.FakeClient
	store      *memory.Storage
	dispatcher *dialog.Dispatcher
	reg        *session.Registry
	clock      *mocks.MockClock
	manager    *Manager
	ctx        context.Context
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) SetupTest() {
	s.client = platformtest.NewFakeClient()
	s.client.AddChannel(regChannel, "")
	s.client.AddChannel(presChannel, "")
	s.client.RolePositions[verifiedRole] = 10
	s.client.RolePositions[trialRole] = 20
	s.client.BotTopPosition = 50

	s.store = memory.New()
	s.dispatcher = dialog.NewDispatcher(s.client, testutil.NopLogger())
	engine := dialog.NewEngine(s.client, s.dispatcher, testutil.NopLogger())
	engine.SetStepTimeout(100 * time.Millisecond)
	s.reg = session.NewRegistry(s.client)

	caps := capability.NewSet()
	caps.Grant(capability.Verified, verifiedRole)
	caps.Grant(capability.OnTrial, trialRole)
	s.clock = mocks.NewMockClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))

	s.manager = NewManager(s.client, s.store, engine, s.reg, caps, s.clock, Config{
		Channel:             regChannel,
		PresentationChannel: presChannel,
		PurgeDelay:          10 * time.Second,
	}, testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *ManagerSuite) interactionFor(user model.UserID) platform.Interaction {
	m, _ := s.client.Member(s.ctx, user)
	return platform.Interaction{User: user, Member: m, Channel: regChannel}
}

func (s *ManagerSuite) answerText(user model.UserID, marker, reply string) {
	s.Require().Eventually(func() bool {
		last := s.client.LastMessage(regChannel)
		if last == nil || last.Msg.Select != nil || !strings.Contains(last.Msg.Content, marker) {
			return false
		}
		return s.dispatcher.HandleMessage(s.ctx, platform.MessageEvent{
			ID: "reply", Channel: regChannel, Author: user, Content: reply,
		})
	}, time.Second, 2*time.Millisecond)
}

func (s *ManagerSuite) answerSelect(user model.UserID, marker string, values ...string) {
	s.Require().Eventually(func() bool {
		last := s.client.LastMessage(regChannel)
		if last == nil || last.Msg.Select == nil || !strings.Contains(last.Msg.Content, marker) {
			return false
		}
		return s.dispatcher.HandleInteraction(s.ctx, platform.Interaction{
			ComponentID: last.Msg.Select.ID, User: user, Values: values,
		})
	}, time.Second, 2*time.Millisecond)
}

// completeDialog answers the whole questionnaire for user
func (s *ManagerSuite) completeDialog(user model.UserID) {
	s.answerText(user, "in-game name", "SharpShooter99")
	s.answerSelect(user, "primary position", "ST")
	s.answerSelect(user, "secondary position", "None")
	s.answerSelect(user, "availability", "Monday", "Wednesday")
	s.answerText(user, "last pro club", "FC Retro")
	s.answerSelect(user, "competitions", "VPGF", "VFT")
	s.answerText(user, "experience", "Three seasons in division 2, possession play.")
}

func (s *ManagerSuite) startRegistration(user model.UserID) chan struct{} {
	done := make(chan struct{})
	inter := s.interactionFor(user)
	go func() {
		defer close(done)
		s.manager.Start(s.ctx, inter)
	}()
	return done
}

func (s *ManagerSuite) TestPostButton() {
	s.Require().NoError(s.manager.PostButton(s.ctx))
	msg := s.client.LastMessage(regChannel)
	s.Require().NotNil(msg)
	s.Require().Len(msg.Msg.Buttons, 1)
	s.Equal(RegisterButtonID, msg.Msg.Buttons[0].ID)
}

func (s *ManagerSuite) TestStartRequiresVerifiedRole() {
	s.client.AddMember("u1")

	s.manager.Start(s.ctx, s.interactionFor("u1"))

	s.Require().NotEmpty(s.client.Ephemerals)
	s.Contains(s.client.Ephemerals[0], "role required")
	s.Nil(s.client.LastMessage(regChannel))
}

func (s *ManagerSuite) TestStartRejectsExistingProfile() {
	s.client.AddMember("u1", verifiedRole)
	s.Require().NoError(s.store.SaveProfile(s.ctx, &model.PlayerProfile{UserID: "u1", GamerTag: "old"}))

	s.manager.Start(s.ctx, s.interactionFor("u1"))

	s.Require().NotEmpty(s.client.Ephemerals)
	s.Contains(s.client.Ephemerals[0], "already registered")
}

func (s *ManagerSuite) TestCompletedRegistration() {
	s.client.AddMember("u1", verifiedRole)

	done := s.startRegistration("u1")
	s.completeDialog("u1")
	<-done

	profile, err := s.store.GetProfile(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal("SharpShooter99", profile.GamerTag)
	s.Equal("ST", profile.PrimaryPosition)
	s.Equal("None", profile.SecondaryPosition)
	s.Equal([]string{"Monday", "Wednesday"}, profile.Availability)
	s.Equal("FC Retro", profile.FormerClub)
	s.Equal([]string{"VPGF", "VFT"}, profile.Competitions)
	s.Equal(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), profile.RegisteredAt)

	// Roles swapped: trial in, verified out
	member, err := s.client.Member(s.ctx, "u1")
	s.Require().NoError(err)
	s.True(member.HasRole(trialRole))
	s.False(member.HasRole(verifiedRole))

	// Presentation embed posted publicly
	pres := s.client.LastMessage(presChannel)
	s.Require().NotNil(pres)
	s.Require().NotNil(pres.Msg.Embed)
	s.Contains(pres.Msg.Embed.Title, "Presentation")

	// Channel purged after the delay, register button reposted
	s.Equal([]time.Duration{10 * time.Second}, s.clock.Slept)
	last := s.client.LastMessage(regChannel)
	s.Require().NotNil(last)
	s.Require().Len(last.Msg.Buttons, 1)
	s.Equal(RegisterButtonID, last.Msg.Buttons[0].ID)

	// Registry entry released
	s.NoError(s.reg.Claim(s.ctx, "u1", model.WorkflowRegistration))
}

func (s *ManagerSuite) TestTimeoutPersistsNothingAndAllowsRetry() {
	s.client.AddMember("u1", verifiedRole)

	done := s.startRegistration("u1")
	s.answerText("u1", "in-game name", "SharpShooter99")
	// Never answer the position menu
	<-done

	_, err := s.store.GetProfile(s.ctx, "u1")
	s.ErrorIs(err, model.ErrProfileNotFound)

	member, _ := s.client.Member(s.ctx, "u1")
	s.True(member.HasRole(verifiedRole))
	s.False(member.HasRole(trialRole))
	s.Empty(s.clock.Slept)

	// A second click must start a fresh dialog
	done = s.startRegistration("u1")
	s.completeDialog("u1")
	<-done

	_, err = s.store.GetProfile(s.ctx, "u1")
	s.NoError(err)
}

func (s *ManagerSuite) TestSecondClickWhileDialogInProgressRejected() {
	s.client.AddMember("u1", verifiedRole)

	done := s.startRegistration("u1")
	s.answerText("u1", "in-game name", "SharpShooter99")

	// Click again mid-dialog
	s.Require().Eventually(func() bool {
		before := len(s.client.Ephemerals)
		s.manager.Start(s.ctx, s.interactionFor("u1"))
		for _, e := range s.client.Ephemerals[before:] {
			if strings.Contains(e, "already in progress") {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)

	s.completeDialog("u1")
	<-done
}

func (s *ManagerSuite) TestPresentationFailureIsNotFatal() {
	s.client.AddMember("u1", verifiedRole)
	delete(s.client.Channels, presChannel)

	done := s.startRegistration("u1")
	s.completeDialog("u1")
	<-done

	_, err := s.store.GetProfile(s.ctx, "u1")
	s.NoError(err)
	member, _ := s.client.Member(s.ctx, "u1")
	s.True(member.HasRole(trialRole))
}

func (s *ManagerSuite) TestVerifiedRemovalFailureReportedNotRolledBack() {
	s.client.AddMember("u1", verifiedRole)
	s.client.FailRemoveRole = assertErr("sticky role")

	done := s.startRegistration("u1")
	s.completeDialog("u1")
	<-done

	member, _ := s.client.Member(s.ctx, "u1")
	s.True(member.HasRole(trialRole), "granted role must not be rolled back")
	s.True(member.HasRole(verifiedRole))

	_, err := s.store.GetProfile(s.ctx, "u1")
	s.NoError(err)
}

func (s *ManagerSuite) TestHierarchyTooLowSkipsRoleSwap() {
	s.client.AddMember("u1", verifiedRole)
	s.client.BotTopPosition = 15

	done := s.startRegistration("u1")
	s.completeDialog("u1")
	<-done

	member, _ := s.client.Member(s.ctx, "u1")
	s.False(member.HasRole(trialRole))
	s.True(member.HasRole(verifiedRole))

	// Profile is still persisted; only the swap is skipped.
	_, err := s.store.GetProfile(s.ctx, "u1")
	s.NoError(err)
}

// assertErr is a trivial error type for failure injection
type assertErr string

func (e assertErr) Error() string { return string(e) }
