package access

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_IssueAndVerify(t *testing.T) {
	m := NewTokenManager([]byte("test-secret"), time.Hour)
	companyID := uuid.New()

	token, err := m.Issue(companyID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	got, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, companyID, got)
}

func TestTokenManager_RejectsForeignSecret(t *testing.T) {
	m1 := NewTokenManager([]byte("secret-one"), time.Hour)
	m2 := NewTokenManager([]byte("secret-two"), time.Hour)

	token, err := m1.Issue(uuid.New())
	require.NoError(t, err)

	_, err = m2.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_RejectsExpired(t *testing.T) {
	m := NewTokenManager([]byte("test-secret"), -time.Minute)

	token, err := m.Issue(uuid.New())
	require.NoError(t, err)

	_, err = m.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_RejectsGarbage(t *testing.T) {
	m := NewTokenManager([]byte("test-secret"), time.Hour)

	_, err := m.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestFromTokens_SkipsInvalid(t *testing.T) {
	m := NewTokenManager([]byte("test-secret"), time.Hour)
	goodID := uuid.New()

	good, err := m.Issue(goodID)
	require.NoError(t, err)

	set := FromTokens(m, []string{good, "garbage", ""})

	assert.True(t, set.Has(goodID))
	assert.Len(t, set, 1)
}

func TestSet_NilHasNothing(t *testing.T) {
	var s Set
	assert.False(t, s.Has(uuid.New()))
}
