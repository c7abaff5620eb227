package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndVerifyToken(t *testing.T) {
	m := NewJWTManager("test-secret", 2, 7)

	tok, err := m.GenerateToken("user-1", "alice")
	require.NoError(t, err)

	claims, err := m.VerifyToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
}

func TestVerifyTokenWrongSecret(t *testing.T) {
	m := NewJWTManager("secret-a", 2, 7)
	other := NewJWTManager("secret-b", 2, 7)

	tok, err := m.GenerateToken("user-1", "alice")
	require.NoError(t, err)

	_, err = other.VerifyToken(tok)
	assert.Error(t, err)
}

func TestVerifyGarbageToken(t *testing.T) {
	m := NewJWTManager("test-secret", 2, 7)
	_, err := m.VerifyToken("not-a-jwt")
	assert.Error(t, err)
}

func TestGenerateRandomStringLength(t *testing.T) {
	// 长度参数是随机字节数，hex 编码后翻倍
	a := GenerateRandomString(16)
	b := GenerateRandomString(16)
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
