package iodb

import (
	"errors"
	"testing"

	"github.com/Aariz1001/carpulse-data/pkg/errcode"
	"github.com/gnames/gn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionError_Structure(t *testing.T) {
	cause := errors.New("connection refused")
	err := ConnectionError("localhost", 5432, "carpulse", cause)

	gnErr, ok := err.(*gn.Error)
	require.True(t, ok, "Error should be of type *gn.Error")

	assert.Equal(t, errcode.DBConnectionError, gnErr.Code)
	assert.Contains(t, gnErr.Msg, "%s:%d/%s")
	require.Len(t, gnErr.Vars, 3)
	assert.Equal(t, "localhost", gnErr.Vars[0])
	assert.ErrorIs(t, gnErr.Err, cause)
	assert.Contains(t, gnErr.Err.Error(), "localhost:5432/carpulse")
}

func TestNotConnectedError(t *testing.T) {
	err := NotConnectedError()

	gnErr, ok := err.(*gn.Error)
	require.True(t, ok)
	assert.Equal(t, errcode.DBNotConnectedError, gnErr.Code)
	assert.Contains(t, gnErr.Err.Error(), "before Connect")
}

func TestTableExistsCheckError(t *testing.T) {
	cause := errors.New("syntax error")
	err := TableExistsCheckError("makes", cause)

	gnErr, ok := err.(*gn.Error)
	require.True(t, ok)
	assert.Equal(t, errcode.DBTableExistsCheckError, gnErr.Code)
	require.Len(t, gnErr.Vars, 1)
	assert.Equal(t, "makes", gnErr.Vars[0])
	assert.ErrorIs(t, gnErr.Err, cause)
}

func TestEmptyDatabaseError(t *testing.T) {
	err := EmptyDatabaseError("localhost", "carpulse")

	gnErr, ok := err.(*gn.Error)
	require.True(t, ok)
	assert.Equal(t, errcode.DBEmptyDatabaseError, gnErr.Code)
	assert.Contains(t, gnErr.Msg, "carpulse create")
	require.Len(t, gnErr.Vars, 2)
}
