package dynamo

import (
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrKey(t *testing.T) {
	key := strKey("user_id", "abc")
	v, ok := key["user_id"].(*types.AttributeValueMemberS)
	require.True(t, ok)
	assert.Equal(t, "abc", v.Value)
}

func TestBuildUpdateExpr_Set(t *testing.T) {
	expr, names, values, err := buildUpdateExpr(map[string]interface{}{"active": true})
	require.NoError(t, err)

	assert.Equal(t, "SET #f0 = :v0", expr)
	assert.Equal(t, map[string]string{"#f0": "active"}, names)
	require.Len(t, values, 1)
}

func TestBuildUpdateExpr_RemoveNilValues(t *testing.T) {
	expr, names, values, err := buildUpdateExpr(map[string]interface{}{"reset_token": nil})
	require.NoError(t, err)

	assert.Equal(t, "REMOVE #f0", expr)
	assert.Equal(t, map[string]string{"#f0": "reset_token"}, names)
	assert.Nil(t, values)
}

func TestBuildUpdateExpr_MixedSetAndRemove(t *testing.T) {
	expr, names, values, err := buildUpdateExpr(map[string]interface{}{
		"email_verified": true,
		"email_otp":      nil,
	})
	require.NoError(t, err)

	assert.True(t, strings.Contains(expr, "SET "))
	assert.True(t, strings.Contains(expr, "REMOVE "))
	assert.Len(t, names, 2)
	assert.Len(t, values, 1)
}

func TestBuildUpdateExpr_Empty(t *testing.T) {
	_, _, _, err := buildUpdateExpr(map[string]interface{}{})
	assert.Error(t, err)
}
