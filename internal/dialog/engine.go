package dialog

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"context"

	"github.com/google/uuid"

	"github.com/vpgclub/clubbot/internal/model"
	"github.com/vpgclub/clubbot/internal/platform"
)

// DefaultStepTimeout bounds how long a single prompt waits for its answer
const DefaultStepTimeout = 300 * time.Second

// Engine runs an ordered list of prompts against one fixed (channel, user)
// pair. Sequencing is strictly linear: step i+1 is never posted before
// step i resolves. Any step's timeout or error unwinds the whole run; all
// prior answers are discarded and nothing is persisted.
type Engine struct {
	client     platform.Client
	dispatcher *Dispatcher
	logger     *slog.Logger
	timeout    time.Duration
}

// NewEngine creates an engine with the default step timeout
func NewEngine(client platform.Client, dispatcher *Dispatcher, logger *slog.Logger) *Engine {
	return &Engine{
		client:     client,
		dispatcher: dispatcher,
		logger:     logger,
		timeout:    DefaultStepTimeout,
	}
}

// SetStepTimeout overrides the default timeout for steps that do not
// carry their own.
func (e *Engine) SetStepTimeout(d time.Duration) {
	e.timeout = d
}

// Run executes the steps in order and returns the complete answer record,
// or model.ErrDialogTimeout if any step timed out. On timeout the prompt
// artifacts are cleaned up and a cancellation notice is posted; the
// channel itself is left alone.
func (e *Engine) Run(ctx context.Context, channel model.ChannelID, user model.UserID, steps []Step) (Answers, error) {
	answers := make(Answers, 0, len(steps))

	for _, step := range steps {
		var (
			values []string
			err    error
		)
		switch step.Kind {
		case StepText:
			values, err = e.runText(ctx, channel, user, step)
		case StepSelect:
			values, err = e.runSelect(ctx, channel, user, step)
		default:
			err = fmt.Errorf("unknown step kind %d", step.Kind)
		}
		if err != nil {
			if errors.Is(err, model.ErrDialogTimeout) {
				e.announceCancellation(ctx, channel, user)
			}
			e.logger.Info("dialog run aborted",
				slog.String("user", string(user)),
				slog.String("step", step.Key),
				slog.String("error", err.Error()))
			return nil, err
		}
		answers = append(answers, Answer{Key: step.Key, Values: values})
	}

	return answers, nil
}

func (e *Engine) stepTimeout(step Step) time.Duration {
	if step.Timeout > 0 {
		return step.Timeout
	}
	return e.timeout
}

func (e *Engine) runText(ctx context.Context, channel model.ChannelID, user model.UserID, step Step) ([]string, error) {
	promptID, err := e.client.SendMessage(ctx, channel, platform.Text(platform.Mention(user)+", "+step.Prompt))
	if err != nil {
		return nil, err
	}

	ev, err := e.dispatcher.AwaitMessage(ctx, channel, user, e.stepTimeout(step))
	if err != nil {
		e.deleteQuietly(ctx, channel, promptID)
		return nil, err
	}

	// The reply is dialog plumbing, not conversation; remove it like the
	// prompt once the answer is captured.
	e.deleteQuietly(ctx, channel, ev.ID)
	return []string{ev.Content}, nil
}

func (e *Engine) runSelect(ctx context.Context, channel model.ChannelID, user model.UserID, step Step) ([]string, error) {
	min := step.MinValues
	if min == 0 {
		min = 1
	}
	max := step.MaxValues
	if max == 0 {
		max = 1
	}

	componentID := fmt.Sprintf("dlg:%s:%s", step.Key, uuid.NewString())
	msg := platform.Message{
		Content: platform.Mention(user) + ", " + step.Prompt,
		Select: &platform.SelectMenu{
			ID:          componentID,
			Placeholder: "Make your choice...",
			MinValues:   min,
			MaxValues:   max,
			Options:     step.Options,
		},
	}

	promptID, err := e.client.SendMessage(ctx, channel, msg)
	if err != nil {
		return nil, err
	}

	values, err := e.dispatcher.AwaitSelection(ctx, componentID, user, min, max, e.stepTimeout(step))
	if err != nil {
		if derr := e.client.DisableControls(ctx, channel, promptID); derr != nil {
			e.logger.Warn("could not disable expired menu", slog.String("error", derr.Error()))
		}
		return nil, err
	}

	if err := e.client.DisableControls(ctx, channel, promptID); err != nil {
		e.logger.Warn("could not disable answered menu", slog.String("error", err.Error()))
	}
	return values, nil
}

func (e *Engine) deleteQuietly(ctx context.Context, channel model.ChannelID, message model.MessageID) {
	if err := e.client.DeleteMessage(ctx, channel, message); err != nil {
		e.logger.Warn("could not delete dialog message",
			slog.String("channel", string(channel)),
			slog.String("error", err.Error()))
	}
}

func (e *Engine) announceCancellation(ctx context.Context, channel model.ChannelID, user model.UserID) {
	_, err := e.client.SendMessage(ctx, channel, platform.Text(platform.Mention(user)+", time is up. Cancelling."))
	if err != nil {
		e.logger.Warn("could not announce dialog cancellation", slog.String("error", err.Error()))
	}
}
