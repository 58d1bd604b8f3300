package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/ticket-analytics/internal/domain"
)

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 20, clampLimit(0))
	assert.Equal(t, 20, clampLimit(-5))
	assert.Equal(t, 7, clampLimit(7))
	assert.Equal(t, 100, clampLimit(1000))
}

func TestSnapshotFieldsMatchSelectOrder(t *testing.T) {
	var s domain.AnalysisSnapshot
	fields := snapshotFields(&s)
	assert.Len(t, fields, 11)
	assert.Same(t, &s.ID, fields[0])
	assert.Same(t, &s.Findings, fields[9])
	assert.Same(t, &s.CreatedAt, fields[10])
}
