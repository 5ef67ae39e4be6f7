package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type warmRequest struct {
	Entries []warmEntry `json:"entries" validate:"required,min=1,dive"`
}

type warmEntry struct {
	Key string `json:"key" validate:"required"`
	TTL int64  `json:"ttl" validate:"min=0"`
}

func TestValidateStruct_Valid(t *testing.T) {
	req := warmRequest{Entries: []warmEntry{{Key: "config:plans", TTL: 60}}}
	assert.NoError(t, ValidateStruct(req))
}

func TestValidateStruct_MissingRequired(t *testing.T) {
	err := ValidateStruct(warmRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required")
}

func TestValidateStruct_DivesIntoSlices(t *testing.T) {
	req := warmRequest{Entries: []warmEntry{{Key: ""}}}
	err := ValidateStruct(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Key")
}
