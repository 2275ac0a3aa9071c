package matrix

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/yildizm/feedcluster/internal/record"
)

func load(t *testing.T, input string) []*record.Record {
	t.Helper()
	records, err := record.Load(strings.NewReader(input))
	if err != nil {
		t.Fatalf("failed to load records: %v", err)
	}
	return records
}

func TestBuild(t *testing.T) {
	records := load(t, `[
		{"CustomerName": "A", "Embedding": [0, 0]},
		{"CustomerName": "B", "Embedding": [0, 0.01]},
		{"CustomerName": "C", "Embedding": [10, 10]}
	]`)

	m, err := Build(records, "Embedding")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if m.Rows() != 3 || m.Dims() != 2 {
		t.Fatalf("Expected 3x2 matrix, got %dx%d", m.Rows(), m.Dims())
	}
	if got := m.Row(2); got[0] != 10 || got[1] != 10 {
		t.Errorf("Expected row 2 to be [10 10], got %v", got)
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantIndex int
		missing   bool
	}{
		{
			name:      "missing embedding",
			input:     `[{"Embedding": [1, 2]}, {"CustomerName": "B"}]`,
			wantIndex: 1,
			missing:   true,
		},
		{
			name:      "non numeric embedding",
			input:     `[{"Embedding": "oops"}]`,
			wantIndex: 0,
			missing:   true,
		},
		{
			name:      "empty embedding",
			input:     `[{"Embedding": []}]`,
			wantIndex: 0,
			missing:   true,
		},
		{
			name:      "shape mismatch",
			input:     `[{"Embedding": [1, 2]}, {"Embedding": [1, 2]}, {"Embedding": [1, 2, 3]}]`,
			wantIndex: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(load(t, tt.input), "Embedding")
			if err == nil {
				t.Fatal("Expected error")
			}
			if tt.missing {
				var mf *MissingFieldError
				if !errors.As(err, &mf) {
					t.Fatalf("Expected MissingFieldError, got %T: %v", err, err)
				}
				if mf.Index != tt.wantIndex || mf.Field != "Embedding" {
					t.Errorf("Expected index %d field Embedding, got %d %q", tt.wantIndex, mf.Index, mf.Field)
				}
				return
			}
			var se *ShapeError
			if !errors.As(err, &se) {
				t.Fatalf("Expected ShapeError, got %T: %v", err, err)
			}
			if se.Index != tt.wantIndex || se.Want != 2 || se.Got != 3 {
				t.Errorf("Unexpected shape error %+v", se)
			}
		})
	}
}

func TestBuildEmpty(t *testing.T) {
	_, err := Build(nil, "Embedding")
	if !IsShapeError(err) {
		t.Errorf("Expected ShapeError for empty input, got %v", err)
	}
}

func TestIdentities(t *testing.T) {
	records := load(t, `[{"CustomerName": "A"}, {"CustomerName": 7}, {"Other": 1}]`)

	if _, err := Identities(records, "CustomerName"); !IsMissingField(err) {
		t.Fatalf("Expected MissingFieldError, got %v", err)
	}

	ids, err := Identities(records[:2], "CustomerName")
	if err != nil {
		t.Fatal(err)
	}
	if ids[0] != "A" || ids[1] != "7" {
		t.Errorf("Unexpected identities %v", ids)
	}
}

func TestPairwise(t *testing.T) {
	m, err := FromRows([][]float64{{1, 0}, {0, 1}, {2, 0}, {0, 0}})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		metric Metric
		i, j   int
		want   float64
	}{
		{Euclidean, 0, 1, math.Sqrt2},
		{Euclidean, 0, 2, 1},
		{Cosine, 0, 1, 1},
		{Cosine, 0, 2, 0},
		{Cosine, 0, 3, 1},
	}
	for _, tt := range tests {
		d := Pairwise(m, tt.metric)
		if got := d.At(tt.i, tt.j); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("%s(%d,%d): expected %v, got %v", tt.metric, tt.i, tt.j, tt.want, got)
		}
		if got := tt.metric.Distance(m.Row(tt.i), m.Row(tt.j)); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("%s.Distance(%d,%d): expected %v, got %v", tt.metric, tt.i, tt.j, tt.want, got)
		}
		if d.At(tt.i, tt.i) != 0 {
			t.Errorf("Expected zero diagonal")
		}
	}
}

func TestParseMetric(t *testing.T) {
	if _, err := ParseMetric("manhattan"); err == nil {
		t.Error("Expected error for unsupported metric")
	}
	if m, err := ParseMetric("cosine"); err != nil || m != Cosine {
		t.Errorf("Expected cosine, got %v %v", m, err)
	}
}
