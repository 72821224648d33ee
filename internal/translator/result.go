package translator

// Result is the uniform outcome both controllers produce. Success means
// the final code passed syntax validation; logic findings and suggestions
// ride along as warnings either way.
type Result struct {
	Success  bool
	Code     string
	Errors   []string
	Warnings []string
	Metadata map[string]any
}

func newResult(approach string) *Result {
	return &Result{Metadata: map[string]any{"approach": approach}}
}

func failed(approach string, errs ...string) *Result {
	r := newResult(approach)
	r.Errors = append(r.Errors, errs...)
	return r
}

func cancelled(approach string) *Result {
	r := failed(approach, "translation cancelled")
	r.Metadata["cancelled"] = true
	return r
}

// PartialResult is one streaming update. Non-final updates carry the code
// assembled so far; the last update has Final set and closes the channel.
type PartialResult struct {
	ChunkIndex int
	Code       string
	Warnings   []string
	Final      *Result
}
