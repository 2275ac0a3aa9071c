// Package matrix turns feedback records into a dense embedding matrix.
package matrix

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/yildizm/feedcluster/internal/record"
)

// Matrix is an N×D embedding matrix. Row i belongs to record i.
// It is never modified after Build returns.
type Matrix struct {
	dense *mat.Dense
}

// Build extracts field from every record. All embeddings must share the
// length of the first one.
func Build(records []*record.Record, field string) (*Matrix, error) {
	if len(records) == 0 {
		return nil, &ShapeError{Index: -1}
	}

	var data []float64
	dims := -1
	for i, rec := range records {
		vec, ok, err := rec.Float64s(field)
		if !ok {
			return nil, &MissingFieldError{Index: i, Field: field}
		}
		if err != nil {
			return nil, &MissingFieldError{Index: i, Field: field, Reason: "is not a numeric array"}
		}
		if dims < 0 {
			dims = len(vec)
			if dims == 0 {
				return nil, &MissingFieldError{Index: i, Field: field, Reason: "is empty"}
			}
			data = make([]float64, 0, len(records)*dims)
		}
		if len(vec) != dims {
			return nil, &ShapeError{Index: i, Want: dims, Got: len(vec)}
		}
		data = append(data, vec...)
	}

	return &Matrix{dense: mat.NewDense(len(records), dims, data)}, nil
}

// FromRows builds a matrix from in-memory vectors
func FromRows(rows [][]float64) (*Matrix, error) {
	if len(rows) == 0 {
		return nil, &ShapeError{Index: -1}
	}
	dims := len(rows[0])
	data := make([]float64, 0, len(rows)*dims)
	for i, row := range rows {
		if len(row) != dims {
			return nil, &ShapeError{Index: i, Want: dims, Got: len(row)}
		}
		data = append(data, row...)
	}
	if dims == 0 {
		return nil, &ShapeError{Index: 0, Want: 1, Got: 0}
	}
	return &Matrix{dense: mat.NewDense(len(rows), dims, data)}, nil
}

// FromDense wraps an existing matrix without copying
func FromDense(d *mat.Dense) *Matrix {
	return &Matrix{dense: d}
}

// Rows returns N
func (m *Matrix) Rows() int {
	r, _ := m.dense.Dims()
	return r
}

// Dims returns D
func (m *Matrix) Dims() int {
	_, c := m.dense.Dims()
	return c
}

// Row returns a view of row i. Callers must not modify it.
func (m *Matrix) Row(i int) []float64 {
	return m.dense.RawRowView(i)
}

// Dense returns the matrix as a read-only gonum value
func (m *Matrix) Dense() mat.Matrix {
	return m.dense
}

// Copy returns a mutable copy of the data
func (m *Matrix) Copy() *mat.Dense {
	return mat.DenseCopyOf(m.dense)
}

// Normalized returns a copy whose rows have unit length. Zero rows stay zero.
func (m *Matrix) Normalized() *Matrix {
	c := m.Copy()
	rows, _ := c.Dims()
	for i := 0; i < rows; i++ {
		row := c.RawRowView(i)
		if n := floats.Norm(row, 2); n > 0 {
			floats.Scale(1/n, row)
		}
	}
	return &Matrix{dense: c}
}
