package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/vpgclub/clubbot/internal/model"
	"github.com/vpgclub/clubbot/internal/platform/platformtest"
)

type RegistrySuite struct {
	suite.Suite
	client   *platformtest.FakeClient
	registry *Registry
	ctx      context.Context
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.client = platformtest.NewFakeClient()
	s.registry = NewRegistry(s.client)
	s.ctx = context.Background()
}

func (s *RegistrySuite) TestClaimOnEmptyRegistry() {
	s.NoError(s.registry.Claim(s.ctx, "u1", model.WorkflowTicket))
}

func (s *RegistrySuite) TestSecondClaimFailsWhileChannelAlive() {
	s.client.AddChannel("chan-t1", "")
	s.Require().NoError(s.registry.Claim(s.ctx, "u1", model.WorkflowTicket))
	s.registry.Bind("u1", model.WorkflowTicket, "chan-t1")

	err := s.registry.Claim(s.ctx, "u1", model.WorkflowTicket)
	var open *AlreadyOpenError
	s.Require().ErrorAs(err, &open)
	s.Equal(model.ChannelID("chan-t1"), open.Channel)
	s.Equal(model.WorkflowTicket, open.Kind)
}

func (s *RegistrySuite) TestClaimReservesSlotUntilBound() {
	s.Require().NoError(s.registry.Claim(s.ctx, "u1", model.WorkflowTicket))

	// No Bind yet: a second claim for the same slot must still lose.
	err := s.registry.Claim(s.ctx, "u1", model.WorkflowTicket)
	var open *AlreadyOpenError
	s.Require().ErrorAs(err, &open)
	s.Empty(open.Channel)

	// Releasing the reservation frees the slot again.
	s.registry.Release("u1", model.WorkflowTicket)
	s.NoError(s.registry.Claim(s.ctx, "u1", model.WorkflowTicket))
}

func (s *RegistrySuite) TestStaleEntryIsPurged() {
	ch := s.client.AddChannel("chan-t1", "")
	s.registry.Bind("u1", model.WorkflowTicket, "chan-t1")

	// Channel vanishes outside our bookkeeping
	ch.Deleted = true

	s.NoError(s.registry.Claim(s.ctx, "u1", model.WorkflowTicket))

	// The stale entry is gone, so an owner lookup finds nothing
	_, ok := s.registry.Owner("chan-t1", model.WorkflowTicket)
	s.False(ok)
}

func (s *RegistrySuite) TestKindsAreIndependent() {
	s.client.AddChannel("chan-t1", "")
	s.registry.Bind("u1", model.WorkflowTicket, "chan-t1")

	s.NoError(s.registry.Claim(s.ctx, "u1", model.WorkflowEvaluation))
}

func (s *RegistrySuite) TestReleaseIsIdempotent() {
	s.client.AddChannel("chan-t1", "")
	s.registry.Bind("u1", model.WorkflowTicket, "chan-t1")

	s.registry.Release("u1", model.WorkflowTicket)
	s.registry.Release("u1", model.WorkflowTicket)

	s.NoError(s.registry.Claim(s.ctx, "u1", model.WorkflowTicket))
}

func (s *RegistrySuite) TestOwnerReverseLookup() {
	s.registry.Bind("u1", model.WorkflowEvaluation, "chan-e1")
	s.registry.Bind("u2", model.WorkflowEvaluation, "chan-e2")

	owner, ok := s.registry.Owner("chan-e2", model.WorkflowEvaluation)
	s.True(ok)
	s.Equal(model.UserID("u2"), owner)

	_, ok = s.registry.Owner("chan-e2", model.WorkflowTicket)
	s.False(ok)
}
