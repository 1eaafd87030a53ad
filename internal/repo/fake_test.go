package repo_test

import (
	"context"

	"github.com/pkordes/tagconsole/internal/repo"
)

// call records one statement sent to fakeInvoker.
type call struct {
	query  string
	params []any
}

// fakeInvoker answers every statement with the next queued response and
// records what it was asked.
type fakeInvoker struct {
	calls     []call
	responses [][]repo.Row
	err       error
}

func (f *fakeInvoker) Query(_ context.Context, query string, params ...any) ([]repo.Row, error) {
	f.calls = append(f.calls, call{query: query, params: params})
	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		return []repo.Row{}, nil
	}
	rows := f.responses[0]
	f.responses = f.responses[1:]
	return rows, nil
}

var _ repo.Invoker = (*fakeInvoker)(nil)

func respond(rows ...[]repo.Row) *fakeInvoker {
	return &fakeInvoker{responses: rows}
}
