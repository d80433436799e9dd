package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yishak-cs/themenu/internal/testutil"
)

func score(v int) *int { return &v }

func TestReviewUpsertKeepsOneReviewPerUser(t *testing.T) {
	f := newFixture(t)
	reviews := NewReviewService(f.db)
	dish := testutil.CreateDish(t, f.db, f.user, "gumbo", "okra")

	first, err := reviews.Upsert(f.ctx, f.user, dish.ID, ReviewInput{Notes: "spicy", Results: score(3)})
	require.NoError(t, err)
	second, err := reviews.Upsert(f.ctx, f.user, dish.ID, ReviewInput{Notes: "too spicy", Ease: score(1)})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	friend := testutil.CreateUser(t, f.db, "friend@example.com", f.team)
	_, err = reviews.Upsert(f.ctx, friend, dish.ID, ReviewInput{Fastness: score(2)})
	require.NoError(t, err)

	list, err := reviews.List(f.ctx, dish.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, r := range list {
		if r.UserID == f.user.ID {
			assert.Equal(t, "too spicy", r.Notes)
			assert.Nil(t, r.Results)
			require.NotNil(t, r.Ease)
			assert.Equal(t, 1, *r.Ease)
		}
	}

	require.NoError(t, reviews.Delete(f.ctx, f.user, dish.ID))
	assert.ErrorIs(t, reviews.Delete(f.ctx, f.user, dish.ID), ErrNotFound)
}

func TestReviewValidation(t *testing.T) {
	f := newFixture(t)
	reviews := NewReviewService(f.db)
	dish := testutil.CreateDish(t, f.db, f.user, "gumbo")

	_, err := reviews.Upsert(f.ctx, f.user, dish.ID, ReviewInput{Fastness: score(4)})
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = reviews.Upsert(f.ctx, f.user, dish.ID, ReviewInput{Results: score(0)})
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = reviews.Upsert(f.ctx, f.user, 999, ReviewInput{})
	assert.ErrorIs(t, err, ErrNotFound)
}
