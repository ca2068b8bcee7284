package dialog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/vpgclub/clubbot/internal/model"
	"github.com/vpgclub/clubbot/internal/platform"
	"github.com/vpgclub/clubbot/internal/platform/platformtest"
	"github.com/vpgclub/clubbot/internal/testutil"
)

type DispatcherSuite struct {
	suite.Suite
	client     *platformtest.FakeClient
	dispatcher *Dispatcher
	ctx        context.Context
}

func TestDispatcherSuite(t *testing.T) {
	suite.Run(t, new(DispatcherSuite))
}

func (s *DispatcherSuite) SetupTest() {
	s.client = platformtest.NewFakeClient()
	s.dispatcher = NewDispatcher(s.client, testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *DispatcherSuite) TestAwaitMessageDelivered() {
	done := make(chan struct{})
	var got platform.MessageEvent
	var err error
	go func() {
		defer close(done)
		got, err = s.dispatcher.AwaitMessage(s.ctx, "chan-1", "u1", time.Second)
	}()

	s.Require().Eventually(func() bool {
		return s.dispatcher.HandleMessage(s.ctx, platform.MessageEvent{
			ID: "m1", Channel: "chan-1", Author: "u1", Content: "hello",
		})
	}, time.Second, 5*time.Millisecond)

	<-done
	s.Require().NoError(err)
	s.Equal("hello", got.Content)
}

func (s *DispatcherSuite) TestAwaitMessageTimesOut() {
	_, err := s.dispatcher.AwaitMessage(s.ctx, "chan-1", "u1", 10*time.Millisecond)
	s.ErrorIs(err, model.ErrDialogTimeout)
}

func (s *DispatcherSuite) TestMessageFromOtherUserNotConsumed() {
	go func() {
		_, _ = s.dispatcher.AwaitMessage(s.ctx, "chan-1", "u1", 200*time.Millisecond)
	}()

	s.Require().Eventually(func() bool {
		s.dispatcher.mu.Lock()
		defer s.dispatcher.mu.Unlock()
		return len(s.dispatcher.msgWaiters) == 1
	}, time.Second, 5*time.Millisecond)

	consumed := s.dispatcher.HandleMessage(s.ctx, platform.MessageEvent{
		ID: "m1", Channel: "chan-1", Author: "u2", Content: "not me",
	})
	s.False(consumed)
}

func (s *DispatcherSuite) TestBotMessagesIgnored() {
	consumed := s.dispatcher.HandleMessage(s.ctx, platform.MessageEvent{
		ID: "m1", Channel: "chan-1", Author: "u1", AuthorBot: true,
	})
	s.False(consumed)
}

func (s *DispatcherSuite) TestDuplicateWaiterRejected() {
	go func() {
		_, _ = s.dispatcher.AwaitMessage(s.ctx, "chan-1", "u1", 200*time.Millisecond)
	}()

	s.Require().Eventually(func() bool {
		s.dispatcher.mu.Lock()
		defer s.dispatcher.mu.Unlock()
		return len(s.dispatcher.msgWaiters) == 1
	}, time.Second, 5*time.Millisecond)

	_, err := s.dispatcher.AwaitMessage(s.ctx, "chan-1", "u1", 50*time.Millisecond)
	s.ErrorIs(err, ErrWaiterExists)
}

func (s *DispatcherSuite) TestSelectionByOtherUserRejectedEphemerally() {
	done := make(chan struct{})
	var got []string
	var err error
	go func() {
		defer close(done)
		got, err = s.dispatcher.AwaitSelection(s.ctx, "menu-1", "u1", 1, 1, time.Second)
	}()

	// Wrong user: ephemeral notice, step keeps waiting
	s.Require().Eventually(func() bool {
		return s.dispatcher.HandleInteraction(s.ctx, platform.Interaction{
			ComponentID: "menu-1", User: "u2", Values: []string{"a"},
		})
	}, time.Second, 5*time.Millisecond)
	s.Len(s.client.Ephemerals, 1)

	// Right user completes the step
	s.True(s.dispatcher.HandleInteraction(s.ctx, platform.Interaction{
		ComponentID: "menu-1", User: "u1", Values: []string{"b"},
	}))

	<-done
	s.Require().NoError(err)
	s.Equal([]string{"b"}, got)
}

func (s *DispatcherSuite) TestSelectionOutsideCardinalityRejected() {
	done := make(chan struct{})
	var got []string
	go func() {
		defer close(done)
		got, _ = s.dispatcher.AwaitSelection(s.ctx, "menu-1", "u1", 1, 2, time.Second)
	}()

	s.Require().Eventually(func() bool {
		return s.dispatcher.HandleInteraction(s.ctx, platform.Interaction{
			ComponentID: "menu-1", User: "u1", Values: []string{"a", "b", "c"},
		})
	}, time.Second, 5*time.Millisecond)
	s.Len(s.client.Ephemerals, 1)

	s.True(s.dispatcher.HandleInteraction(s.ctx, platform.Interaction{
		ComponentID: "menu-1", User: "u1", Values: []string{"a", "b"},
	}))

	<-done
	s.Equal([]string{"a", "b"}, got)
}

func (s *DispatcherSuite) TestUnknownComponentNotConsumed() {
	consumed := s.dispatcher.HandleInteraction(s.ctx, platform.Interaction{
		ComponentID: "something-else", User: "u1",
	})
	s.False(consumed)
}
