package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubscriptionStatus_Valid(t *testing.T) {
	for _, s := range []SubscriptionStatus{StatusPending, StatusActive, StatusCancelled, StatusExpired} {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, SubscriptionStatus("trial").Valid())
	assert.False(t, SubscriptionStatus("").Valid())
}

func TestUserPatch_Empty(t *testing.T) {
	name := "Ana"
	assert.True(t, UserPatch{}.Empty())
	assert.False(t, UserPatch{Name: &name}.Empty())
}
