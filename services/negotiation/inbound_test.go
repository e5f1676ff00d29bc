package negotiation

import (
	"context"
	"strings"
	"testing"
	"time"

	"molbhav/models"
	"molbhav/services/messaging"
)

func TestHandleProviderMessageAutoAccept(t *testing.T) {
	env := newTestEnv()
	env.addRequest("req-1", "cust-1", models.RequestStatusNegotiating, 1000)
	env.addSession("s-1", "req-1", "prov-1", "telegram:100", 1000, 700)

	reply, err := env.svc.HandleProviderMessage(context.Background(), "telegram:100", "I can do it for 650")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != acceptText(650) {
		t.Errorf("unexpected reply: %q", reply)
	}

	stored := env.sessions.sessions["s-1"]
	if stored.Status != models.SessionStatusCompleted || stored.Outcome != models.OutcomeAgreed {
		t.Errorf("expected completed/agreed, got %s/%s", stored.Status, stored.Outcome)
	}
	if stored.CurrentOffer == nil || *stored.CurrentOffer != 650 {
		t.Errorf("expected currentOffer 650, got %v", stored.CurrentOffer)
	}
	if *stored.CurrentOffer > stored.MaxPrice {
		t.Errorf("agreed offer %v exceeds budget %v", *stored.CurrentOffer, stored.MaxPrice)
	}
	if stored.MessageCount != 2 || len(stored.ConversationHistory) != 2 {
		t.Fatalf("expected 2 transcript entries, got %d", len(stored.ConversationHistory))
	}
	if stored.ConversationHistory[0].Role != models.RoleProviderParty ||
		stored.ConversationHistory[1].Role != models.RoleAgent {
		t.Errorf("transcript out of order: %s then %s",
			stored.ConversationHistory[0].Role, stored.ConversationHistory[1].Role)
	}

	if len(env.dispatcher.checks) != 1 || env.dispatcher.checks[0] != "req-1" {
		t.Errorf("expected one finalize check for req-1, got %v", env.dispatcher.checks)
	}
	if env.notifier.countByType(models.NotificationNewOffer) != 1 {
		t.Errorf("expected one new-offer notification, got %d",
			env.notifier.countByType(models.NotificationNewOffer))
	}
}

func TestHandleProviderMessageCounters(t *testing.T) {
	env := newTestEnv()
	env.addRequest("req-1", "cust-1", models.RequestStatusNegotiating, 1000)
	env.addSession("s-1", "req-1", "prov-1", "telegram:100", 1000, 700)

	reply, err := env.svc.HandleProviderMessage(context.Background(), "telegram:100", "₹800")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(reply, "750") {
		t.Errorf("expected counter 750 in reply, got %q", reply)
	}

	stored := env.sessions.sessions["s-1"]
	if stored.Status != models.SessionStatusActive {
		t.Errorf("session should stay active, got %s", stored.Status)
	}
	if stored.CurrentOffer == nil || *stored.CurrentOffer != 800 {
		t.Errorf("expected currentOffer 800, got %v", stored.CurrentOffer)
	}
	if stored.CounterOffer == nil || *stored.CounterOffer != 750 {
		t.Errorf("expected counterOffer 750, got %v", stored.CounterOffer)
	}
	if len(env.dispatcher.checks) != 0 {
		t.Errorf("no finalize check while still negotiating, got %v", env.dispatcher.checks)
	}
}

func TestHandleProviderMessageRejectsOverBudget(t *testing.T) {
	env := newTestEnv()
	env.addRequest("req-1", "cust-1", models.RequestStatusNegotiating, 1000)
	env.addSession("s-1", "req-1", "prov-1", "telegram:100", 1000, 700)

	reply, err := env.svc.HandleProviderMessage(context.Background(), "telegram:100", "1500")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(reply, "1000") {
		t.Errorf("expected capped counter 1000 in reply, got %q", reply)
	}

	stored := env.sessions.sessions["s-1"]
	if stored.Status != models.SessionStatusActive {
		t.Errorf("session should stay active, got %s", stored.Status)
	}
	if stored.CounterOffer == nil || *stored.CounterOffer != 1000 {
		t.Errorf("expected counterOffer 1000, got %v", stored.CounterOffer)
	}
}

func TestHandleProviderMessageNoPriceKeepsFieldsUntouched(t *testing.T) {
	env := newTestEnv()
	env.addRequest("req-1", "cust-1", models.RequestStatusNegotiating, 1000)
	env.addSession("s-1", "req-1", "prov-1", "telegram:100", 1000, 700)

	reply, err := env.svc.HandleProviderMessage(context.Background(), "telegram:100", "which area is this?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != replyAskForPrice {
		t.Errorf("expected price prompt, got %q", reply)
	}

	stored := env.sessions.sessions["s-1"]
	if stored.Status != models.SessionStatusActive {
		t.Errorf("session should stay active, got %s", stored.Status)
	}
	if stored.CurrentOffer != nil || stored.CounterOffer != nil {
		t.Errorf("price fields must stay untouched, got %v / %v",
			stored.CurrentOffer, stored.CounterOffer)
	}
	if len(stored.ConversationHistory) != 2 {
		t.Errorf("conversation should still be recorded, got %d entries",
			len(stored.ConversationHistory))
	}
}

func TestHandleProviderMessageWithoutSession(t *testing.T) {
	env := newTestEnv()

	reply, err := env.svc.HandleProviderMessage(context.Background(), "telegram:404", "800")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != replyNoActiveNegotiation {
		t.Errorf("expected the no-negotiation reply, got %q", reply)
	}
}

func TestHandleProviderMessageExpiredSession(t *testing.T) {
	env := newTestEnv()
	env.addRequest("req-1", "cust-1", models.RequestStatusNegotiating, 1000)
	sess := env.addSession("s-1", "req-1", "prov-1", "telegram:100", 1000, 700)
	sess.ExpiresAt = time.Now().Add(-time.Minute)

	reply, err := env.svc.HandleProviderMessage(context.Background(), "telegram:100", "800")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != replyExpired {
		t.Errorf("expected expiry reply, got %q", reply)
	}

	stored := env.sessions.sessions["s-1"]
	if stored.Status != models.SessionStatusExpired || stored.Outcome != models.OutcomeTimeout {
		t.Errorf("expected expired/timeout, got %s/%s", stored.Status, stored.Outcome)
	}
	if stored.CurrentOffer != nil {
		t.Errorf("expired session must not take the offer, got %v", stored.CurrentOffer)
	}
	if len(env.dispatcher.checks) != 1 {
		t.Errorf("expected a finalize check after expiry, got %v", env.dispatcher.checks)
	}
}

func TestHandleProviderMessageRetriesOnVersionConflict(t *testing.T) {
	env := newTestEnv()
	env.addRequest("req-1", "cust-1", models.RequestStatusNegotiating, 1000)
	env.addSession("s-1", "req-1", "prov-1", "telegram:100", 1000, 700)
	env.sessions.conflicts = 1

	reply, err := env.svc.HandleProviderMessage(context.Background(), "telegram:100", "800")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(reply, "750") {
		t.Errorf("expected counter 750 after retry, got %q", reply)
	}

	stored := env.sessions.sessions["s-1"]
	if len(stored.ConversationHistory) != 2 {
		t.Errorf("retry must not duplicate transcript entries, got %d",
			len(stored.ConversationHistory))
	}
}

func TestHandleProviderMessageSessionCompletedUnderneath(t *testing.T) {
	env := newTestEnv()
	env.addRequest("req-1", "cust-1", models.RequestStatusNegotiating, 1000)
	sess := env.addSession("s-1", "req-1", "prov-1", "telegram:100", 1000, 700)

	// Another delivery completes the session between our read and write.
	env.sessions.beforeUpdate = func() {
		offer := 720.0
		sess.Status = models.SessionStatusCompleted
		sess.Outcome = models.OutcomeAgreed
		sess.CurrentOffer = &offer
		sess.Version++
	}

	reply, err := env.svc.HandleProviderMessage(context.Background(), "telegram:100", "800")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(reply, "720") {
		t.Errorf("expected the locked-in reply mentioning 720, got %q", reply)
	}
	if sess.Status != models.SessionStatusCompleted || *sess.CurrentOffer != 720 {
		t.Errorf("terminal session must stay frozen, got %s at %v", sess.Status, *sess.CurrentOffer)
	}
}

func TestHandleProviderActionAccept(t *testing.T) {
	env := newTestEnv()
	env.addRequest("req-1", "cust-1", models.RequestStatusNegotiating, 1000)
	sess := env.addSession("s-1", "req-1", "prov-1", "telegram:100", 1000, 700)
	offer, counter := 800.0, 750.0
	sess.CurrentOffer = &offer
	sess.CounterOffer = &counter

	reply, err := env.svc.HandleProviderAction(context.Background(), "telegram:100", messaging.ActionAccept)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != acceptText(750) {
		t.Errorf("unexpected reply: %q", reply)
	}

	stored := env.sessions.sessions["s-1"]
	if !stored.Agreed() {
		t.Fatalf("expected agreed session, got %s/%s", stored.Status, stored.Outcome)
	}
	if *stored.CurrentOffer != 750 {
		t.Errorf("deal should close at the counter-offer 750, got %v", *stored.CurrentOffer)
	}
	if len(env.dispatcher.checks) != 1 {
		t.Errorf("expected a finalize check, got %v", env.dispatcher.checks)
	}
}

func TestHandleProviderActionAcceptWithoutCounter(t *testing.T) {
	env := newTestEnv()
	env.addRequest("req-1", "cust-1", models.RequestStatusNegotiating, 1000)
	env.addSession("s-1", "req-1", "prov-1", "telegram:100", 1000, 700)

	reply, err := env.svc.HandleProviderAction(context.Background(), "telegram:100", messaging.ActionAccept)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != replyAcceptNoCounter {
		t.Errorf("expected the quote-first reply, got %q", reply)
	}

	stored := env.sessions.sessions["s-1"]
	if stored.Status != models.SessionStatusActive || stored.Version != 0 {
		t.Errorf("session must be untouched, got status %s version %d",
			stored.Status, stored.Version)
	}
}

func TestHandleProviderActionReject(t *testing.T) {
	env := newTestEnv()
	env.addRequest("req-1", "cust-1", models.RequestStatusNegotiating, 1000)
	env.addSession("s-1", "req-1", "prov-1", "telegram:100", 1000, 700)

	reply, err := env.svc.HandleProviderAction(context.Background(), "telegram:100", messaging.ActionReject)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != replyRejectAck {
		t.Errorf("unexpected reply: %q", reply)
	}

	stored := env.sessions.sessions["s-1"]
	if stored.Status != models.SessionStatusFailed || stored.Outcome != models.OutcomeNoDeal {
		t.Errorf("expected failed/no_deal, got %s/%s", stored.Status, stored.Outcome)
	}
	if len(env.dispatcher.checks) != 1 {
		t.Errorf("a rejection can settle the request, expected a finalize check")
	}
	if env.notifier.countByType(models.NotificationNewOffer) != 0 {
		t.Errorf("rejection must not announce an offer")
	}
}

func TestHandleProviderActionCounterPrompts(t *testing.T) {
	env := newTestEnv()
	env.addRequest("req-1", "cust-1", models.RequestStatusNegotiating, 1000)
	env.addSession("s-1", "req-1", "prov-1", "telegram:100", 1000, 700)

	reply, err := env.svc.HandleProviderAction(context.Background(), "telegram:100", messaging.ActionCounter)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != replyCounterPrompt {
		t.Errorf("unexpected reply: %q", reply)
	}

	stored := env.sessions.sessions["s-1"]
	if stored.Status != models.SessionStatusActive {
		t.Errorf("session should stay active, got %s", stored.Status)
	}
	if len(stored.ConversationHistory) != 2 {
		t.Errorf("expected the exchange on the transcript, got %d entries",
			len(stored.ConversationHistory))
	}
}

func TestHandleProviderActionUnknown(t *testing.T) {
	env := newTestEnv()
	env.addRequest("req-1", "cust-1", models.RequestStatusNegotiating, 1000)
	env.addSession("s-1", "req-1", "prov-1", "telegram:100", 1000, 700)

	if _, err := env.svc.HandleProviderAction(context.Background(), "telegram:100", "shrug"); err == nil {
		t.Fatal("expected an error for an unknown action")
	}
}
