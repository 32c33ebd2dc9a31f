package service

import (
	"context"
	"sync"
	"testing"

	"github.com/kube-rca/oncall-agent/internal/model"
	"github.com/kube-rca/oncall-agent/internal/store"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type escalationFixture struct {
	svc      *EscalationService
	calls    *store.CallStore
	phone    *fakePhone
	notifier *fakeNotifier
}

func newEscalationFixture() escalationFixture {
	phone := &fakePhone{}
	notifier := &fakeNotifier{}
	caller, calls := newTestCaller(phone, notifier)
	svc := NewEscalationService(calls, testRoster(), caller, notifier, zerolog.Nop())
	svc.now = caller.now
	return escalationFixture{svc: svc, calls: calls, phone: phone, notifier: notifier}
}

// placePrimary - primary 발신 후 answered 상태까지 진행
func (f escalationFixture) placePrimary(t *testing.T, engineer model.Engineer) model.CallRecord {
	t.Helper()
	rec, err := f.svc.caller.InitiateCall(context.Background(), CallRequest{
		Engineer:     engineer,
		Decision:     testDecision,
		ErrorEventID: "ctx_1",
	})
	require.NoError(t, err)
	f.svc.StatusUpdate(context.Background(), rec.ProviderCallID, "ringing")
	f.svc.StatusUpdate(context.Background(), rec.ProviderCallID, "in-progress")

	rec, err = f.calls.Get(rec.ID)
	require.NoError(t, err)
	require.Equal(t, model.CallAnswered, rec.Status)
	require.NotNil(t, rec.AnsweredAt)
	return rec
}

func TestAcknowledge(t *testing.T) {
	f := newEscalationFixture()
	rec := f.placePrimary(t, alice)

	res, err := f.svc.HandleIntent(context.Background(), rec.ID, IntentAcknowledge, "on it")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAcknowledged, res.Outcome)
	assert.Equal(t, model.CallAcknowledged, res.Record.Status)
	assert.Equal(t, "on it", res.Record.AcknowledgmentNote)
	assert.NotNil(t, res.Record.AcknowledgedAt)
}

func TestEndOfCallAfterAcknowledgeIsNoop(t *testing.T) {
	f := newEscalationFixture()
	rec := f.placePrimary(t, alice)

	_, err := f.svc.HandleIntent(context.Background(), rec.ID, IntentAcknowledge, "")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		res, err := f.svc.EndOfCall(context.Background(), rec.ProviderCallID, "customer-ended-call", "transcript")
		require.NoError(t, err)
		assert.Equal(t, OutcomeIgnored, res.Outcome)
	}

	stored, err := f.calls.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CallAcknowledged, stored.Status)
	assert.Nil(t, stored.EscalatedTo)
	assert.Equal(t, "customer-ended-call", stored.EndedReason)
	assert.Equal(t, "transcript", stored.FullTranscript)
	assert.Len(t, f.phone.placed(), 1, "no backup call")
}

func TestManualEscalateCallsBackup(t *testing.T) {
	f := newEscalationFixture()
	rec := f.placePrimary(t, alice)

	res, err := f.svc.HandleIntent(context.Background(), rec.ID, IntentEscalate, "in a meeting")
	require.NoError(t, err)
	assert.Equal(t, OutcomeEscalated, res.Outcome)
	assert.Equal(t, model.CallEscalated, res.Record.Status)
	assert.Equal(t, "in a meeting", res.Record.EscalationReason)
	require.NotNil(t, res.Record.EscalatedTo)
	assert.Equal(t, bob.ID, res.Record.EscalatedTo.ID)
	require.NotNil(t, res.Backup)
	assert.Equal(t, bob.Name, res.Backup.Name)

	require.NotNil(t, res.BackupCall)
	assert.Equal(t, bob.ID, res.BackupCall.Engineer.ID)
	assert.Equal(t, model.ServicePayments, res.BackupCall.Service)
	assert.Equal(t, "ctx_1", res.BackupCall.ErrorEventID)

	placed := f.phone.placed()
	require.Len(t, placed, 2)
	assert.Equal(t, bob.Phone, placed[1].Engineer.Phone)
	assert.Equal(t, testDecision.Summary, placed[1].Decision.Summary)
}

func TestManualEscalateWithoutBackup(t *testing.T) {
	f := newEscalationFixture()
	rec := f.placePrimary(t, frank)

	res, err := f.svc.HandleIntent(context.Background(), rec.ID, IntentEscalate, "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoBackup, res.Outcome)
	assert.Equal(t, model.CallAnswered, res.Record.Status)
	assert.Len(t, f.phone.placed(), 1)

	// 이후 acknowledge는 여전히 가능
	res, err = f.svc.HandleIntent(context.Background(), rec.ID, IntentAcknowledge, "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAcknowledged, res.Outcome)
}

func TestEndOfCallWithoutResponseAutoEscalates(t *testing.T) {
	f := newEscalationFixture()
	rec := f.placePrimary(t, alice)

	res, err := f.svc.EndOfCall(context.Background(), rec.ProviderCallID, "silence-timed-out", "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeEscalated, res.Outcome)
	assert.Equal(t, model.CallEscalated, res.Record.Status)
	assert.Equal(t, AutoEscalationReason, res.Record.EscalationReason)
	assert.Equal(t, "silence-timed-out", res.Record.EndedReason)
	assert.NotNil(t, res.Record.EndedAt)
	require.NotNil(t, res.BackupCall)
	assert.Len(t, f.phone.placed(), 2)

	// 같은 종료 이벤트 재전송
	res, err = f.svc.EndOfCall(context.Background(), rec.ProviderCallID, "silence-timed-out", "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, res.Outcome)
	assert.Len(t, f.phone.placed(), 2)
}

func TestAutoEscalateWithoutBackupFails(t *testing.T) {
	f := newEscalationFixture()
	rec := f.placePrimary(t, frank)

	f.svc.StatusUpdate(context.Background(), rec.ProviderCallID, "no-answer")

	stored, err := f.calls.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CallFailed, stored.Status)
	assert.Equal(t, "no-answer", stored.EndedReason)
	assert.Equal(t, noBackupReason, stored.EscalationReason)
	assert.Len(t, f.phone.placed(), 1)
}

func TestBackupCallDoesNotEscalateToItself(t *testing.T) {
	f := newEscalationFixture()
	rec := f.placePrimary(t, alice)

	res, err := f.svc.AutoEscalate(context.Background(), rec.ID)
	require.NoError(t, err)
	require.NotNil(t, res.BackupCall)

	// bob도 응답하지 않음: bob은 payments의 backup이므로 더 이상 대상이 없음
	res, err = f.svc.EndOfCall(context.Background(), res.BackupCall.ProviderCallID, "no-answer", "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, model.CallFailed, res.Record.Status)
	assert.Len(t, f.phone.placed(), 2)
}

func TestKeypadAndVoiceShareIntentPath(t *testing.T) {
	// 같은 의사는 어느 경로로 들어와도 같은 결과를 냄
	for _, intent := range []Intent{IntentAcknowledge, IntentEscalate} {
		t.Run(string(intent), func(t *testing.T) {
			a := newEscalationFixture()
			b := newEscalationFixture()
			recA := a.placePrimary(t, alice)
			recB := b.placePrimary(t, alice)

			resA, err := a.svc.HandleIntent(context.Background(), recA.ID, intent, "")
			require.NoError(t, err)
			resB, err := b.svc.HandleIntent(context.Background(), recB.ID, intent, "")
			require.NoError(t, err)

			assert.Equal(t, resA.Outcome, resB.Outcome)
			assert.Equal(t, resA.Record.Status, resB.Record.Status)
		})
	}
}

func TestRepeatAndDetailsReturnDecision(t *testing.T) {
	f := newEscalationFixture()
	rec := f.placePrimary(t, alice)

	res, err := f.svc.HandleIntent(context.Background(), rec.ID, IntentRepeat, "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeRepeat, res.Outcome)
	assert.Equal(t, testDecision.Summary, res.Decision.Summary)

	res, err = f.svc.HandleIntent(context.Background(), rec.ID, IntentDetails, "impact")
	require.NoError(t, err)
	assert.Equal(t, OutcomeDetails, res.Outcome)
	assert.Equal(t, model.CallAnswered, res.Record.Status)
}

func TestIntentOnUnknownRecord(t *testing.T) {
	f := newEscalationFixture()
	_, err := f.svc.HandleIntent(context.Background(), "call_missing", IntentAcknowledge, "")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStatusUpdateUnknownProviderIsIgnored(t *testing.T) {
	f := newEscalationFixture()
	assert.NotPanics(t, func() {
		f.svc.StatusUpdate(context.Background(), "CA-unknown", "completed")
	})
	res, err := f.svc.EndOfCall(context.Background(), "CA-unknown", "", "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, res.Outcome)
}

func TestStatusDoesNotRegress(t *testing.T) {
	f := newEscalationFixture()
	rec := f.placePrimary(t, alice)

	f.svc.StatusUpdate(context.Background(), rec.ProviderCallID, "ringing")
	stored, err := f.calls.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CallAnswered, stored.Status)
}

func TestConcurrentAcknowledgeAndEscalate(t *testing.T) {
	for i := 0; i < 20; i++ {
		f := newEscalationFixture()
		rec := f.placePrimary(t, alice)

		var wg sync.WaitGroup
		results := make([]IntentResult, 2)
		for j, intent := range []Intent{IntentAcknowledge, IntentEscalate} {
			wg.Add(1)
			go func(j int, intent Intent) {
				defer wg.Done()
				res, err := f.svc.HandleIntent(context.Background(), rec.ID, intent, "")
				assert.NoError(t, err)
				results[j] = res
			}(j, intent)
		}
		wg.Wait()

		ignored := 0
		for _, r := range results {
			if r.Outcome == OutcomeIgnored {
				ignored++
			}
		}
		assert.Equal(t, 1, ignored, "exactly one intent wins")
	}
}
