package remote

// FitRequest is the body of POST /fit_predict. Exactly one of Features and
// Distances is set.
type FitRequest struct {
	Algorithm string      `json:"algorithm"`
	Params    interface{} `json:"params"`
	Features  [][]float64 `json:"features,omitempty"`
	Distances [][]float64 `json:"distances,omitempty"`
}

// FitResponse carries one label per row; -1 means no assignment
type FitResponse struct {
	Labels []int  `json:"labels"`
	Error  string `json:"error,omitempty"`
}

// ReduceRequest is the body of POST /reduce
type ReduceRequest struct {
	Method   string      `json:"method"`
	Params   interface{} `json:"params"`
	Features [][]float64 `json:"features"`
}

// ReduceResponse holds the reduced coordinates
type ReduceResponse struct {
	Embedding [][]float64 `json:"embedding"`
	Error     string      `json:"error,omitempty"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status     string   `json:"status"`
	Algorithms []string `json:"algorithms,omitempty"`
}
