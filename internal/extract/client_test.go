package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validAnswer = `{
	"balance": 1234.56,
	"total_points": 9000,
	"pending_yield": 4.2,
	"account_number": 3,
	"positions": [
		{"pair": "SOL/USDC", "size": 800, "rate": 12.5, "in_range": true}
	]
}`

// fakeProvider records which models get called and answers per-model.
type fakeProvider struct {
	mu      sync.Mutex
	calls   []string
	answers map[string]func(w http.ResponseWriter) // nil entry => 500
}

func (f *fakeProvider) handler(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.calls = append(f.calls, req.Model)
	answer := f.answers[req.Model]
	f.mu.Unlock()

	if answer == nil {
		http.Error(w, "model overloaded", http.StatusInternalServerError)
		return
	}
	answer(w)
}

func (f *fakeProvider) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func answerContent(content string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": content}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}
}

func newTestClient(t *testing.T, provider *fakeProvider, models ...string) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(provider.handler))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-key", models, models, 5*time.Second, 20*time.Second)
}

func TestCascadeStopsAtFirstSuccess(t *testing.T) {
	provider := &fakeProvider{answers: map[string]func(http.ResponseWriter){
		"model-3": answerContent(validAnswer),
		"model-4": answerContent(validAnswer),
	}}
	client := newTestClient(t, provider, "model-1", "model-2", "model-3", "model-4")

	rec := client.ExtractFromText(context.Background(), "some dashboard text")
	require.NotNil(t, rec)
	assert.True(t, rec.Balance.Valid)
	assert.Equal(t, "1234.56", rec.Balance.Decimal.String())
	assert.Equal(t, 3, rec.SlotHint())
	require.Len(t, rec.Positions, 1)
	assert.Equal(t, "SOL/USDC", rec.Positions[0].Pair)

	assert.Equal(t, []string{"model-1", "model-2", "model-3"}, provider.called(),
		"models after the first success must never be called")
}

func TestCascadeTotalFailureReturnsNil(t *testing.T) {
	provider := &fakeProvider{answers: map[string]func(http.ResponseWriter){}}
	client := newTestClient(t, provider, "model-1", "model-2")

	rec := client.ExtractFromText(context.Background(), "anything")
	assert.Nil(t, rec, "exhausted cascade yields nil, never a panic or error escape")
	assert.Equal(t, []string{"model-1", "model-2"}, provider.called())
}

func TestCascadeSkipsMalformedJSON(t *testing.T) {
	provider := &fakeProvider{answers: map[string]func(http.ResponseWriter){
		"model-1": answerContent("I think your balance is around $500, nice!"),
		"model-2": answerContent("```json\n" + validAnswer + "\n```"),
	}}
	client := newTestClient(t, provider, "model-1", "model-2")

	rec := client.ExtractFromText(context.Background(), "dashboard")
	require.NotNil(t, rec, "fenced JSON from a later model must still parse")
	assert.True(t, rec.Balance.Valid)
}

func TestCascadeSkipsEmptyChoices(t *testing.T) {
	provider := &fakeProvider{answers: map[string]func(http.ResponseWriter){
		"model-1": func(w http.ResponseWriter) {
			fmt.Fprint(w, `{"choices": []}`)
		},
		"model-2": answerContent(validAnswer),
	}}
	client := newTestClient(t, provider, "model-1", "model-2")

	rec := client.ExtractFromText(context.Background(), "dashboard")
	require.NotNil(t, rec)
	assert.Equal(t, []string{"model-1", "model-2"}, provider.called())
}

func TestExtractFromImageUsesVisionModels(t *testing.T) {
	provider := &fakeProvider{answers: map[string]func(http.ResponseWriter){
		"vision-1": answerContent(validAnswer),
	}}
	srv := httptest.NewServer(http.HandlerFunc(provider.handler))
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL, "", []string{"text-1"}, []string{"vision-1"}, 5*time.Second, 20*time.Second)
	rec := client.ExtractFromImage(context.Background(), []byte{0xff, 0xd8, 0xff}, "image/jpeg")
	require.NotNil(t, rec)
	assert.Equal(t, []string{"vision-1"}, provider.called())
}

func TestCascadeHonorsContextCancellation(t *testing.T) {
	provider := &fakeProvider{answers: map[string]func(http.ResponseWriter){}}
	client := newTestClient(t, provider, "model-1", "model-2")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := client.ExtractFromText(ctx, "dashboard")
	assert.Nil(t, rec)
	assert.Empty(t, provider.called(), "a dead context must not start new calls")
}

func TestParseRecordAbsentFieldsStayAbsent(t *testing.T) {
	rec, err := parseRecord(`{"balance": null, "total_points": 10}`)
	require.NoError(t, err)
	assert.False(t, rec.Balance.Valid, "null must stay absent, never become zero")
	assert.False(t, rec.HasBalance())
	assert.True(t, rec.TotalPoints.Valid)
	assert.Zero(t, rec.SlotHint())
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"  {\"a\":1}  ", `{"a":1}`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripFences(tt.in))
	}
}

func TestSlotHintRange(t *testing.T) {
	for n, want := range map[int]int{1: 1, 10: 10, 0: 0, 11: 0, -2: 0} {
		n := n
		rec := &Record{AccountNumber: &n}
		assert.Equal(t, want, rec.SlotHint(), "account_number %d", n)
	}
}
