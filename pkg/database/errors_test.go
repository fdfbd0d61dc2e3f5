package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", sql.ErrNoRows, ErrNotFound},
		{"unique violation", &pq.Error{Code: "23505"}, ErrUniqueViolation},
		{"deadline", context.DeadlineExceeded, ErrStoreUnavailable},
		{"foreign key violation", &pq.Error{Code: "23503"}, ErrIntegrityViolation},
		{"check violation", &pq.Error{Code: "23514"}, ErrIntegrityViolation},
		{"other driver error", &pq.Error{Code: "08006"}, ErrStoreUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err, "lookup")
			assert.ErrorIs(t, got, tt.want)
			assert.ErrorIs(t, got, tt.err)
		})
	}

	assert.NoError(t, Classify(nil, "lookup"))
	assert.NotErrorIs(t, Classify(&pq.Error{Code: "23503"}, "insert"), ErrStoreUnavailable)
	assert.False(t, IsTransient(Classify(&pq.Error{Code: "23503"}, "insert")))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.True(t, IsUniqueViolation(Classify(&pq.Error{Code: "23505"}, "insert")))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(context.DeadlineExceeded))
	assert.True(t, IsTransient(Classify(errors.New("connection refused"), "select")))
	assert.False(t, IsTransient(ErrNotFound))
}
