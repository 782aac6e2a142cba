package app

import (
	"testing"

	"github.com/transfa/wallet-gateway/pkg/session"
)

func TestSyncerSkipsWithoutSession(t *testing.T) {
	backend := &backendStub{}
	sessions := &sessionStub{state: session.StateAnonymous}
	s, _ := newTestStore(t, backend, sessions)
	syncer := NewSyncer(s, "", s.logger)

	syncer.Sync()
	if backend.getAccountCalls() != 0 {
		t.Fatalf("expected no refresh while anonymous")
	}

	sessions.state = session.StateAuthenticated
	syncer.Sync()
	if backend.getAccountCalls() != 1 {
		t.Fatalf("expected one refresh while authenticated, got %d", backend.getAccountCalls())
	}

	syncer.Start()
	<-syncer.Stop().Done()
}
