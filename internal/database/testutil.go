package database

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// NewTestDB creates an in-memory SQLite database for testing.
// The database is automatically closed when the test completes.
func NewTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(":memory:")
	require.NoError(t, err, "failed to create test database")

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

var testUserCounter atomic.Int64

// CreateTestUser creates a user with a unique email and Google ID.
func CreateTestUser(t *testing.T, db *DB) *User {
	t.Helper()
	n := testUserCounter.Add(1)
	return CreateTestUserWithEmail(t, db, fmt.Sprintf("testuser%d@example.com", n))
}

// CreateTestUserWithEmail creates a test user with a specific email
func CreateTestUserWithEmail(t *testing.T, db *DB, email string) *User {
	t.Helper()
	n := testUserCounter.Add(1)

	user, err := db.UpsertGoogleUser(GoogleProfile{
		GoogleID: fmt.Sprintf("test-google-id-%d", n),
		Email:    email,
		Name:     fmt.Sprintf("Test User %d", n),
	})
	require.NoError(t, err, "failed to create test user")
	return user
}
