package llm

import "context"

// FakeClient replays scripted responses for offline runs and tests. Each
// call consumes the next script entry; the last entry repeats once the
// script is exhausted. A nil Err per entry means success.
type FakeClient struct {
	Script []FakeTurn
	Calls  []Prompt
}

type FakeTurn struct {
	Text string
	Err  error
}

func NewFakeClient(turns ...FakeTurn) *FakeClient {
	return &FakeClient{Script: turns}
}

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }

func (f *FakeClient) GenerateText(ctx context.Context, p Prompt) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.Calls = append(f.Calls, p)

	if len(f.Script) == 0 {
		return "{}", nil
	}
	idx := len(f.Calls) - 1
	if idx >= len(f.Script) {
		idx = len(f.Script) - 1
	}
	turn := f.Script[idx]
	if turn.Err != nil {
		return "", turn.Err
	}
	return turn.Text, nil
}
