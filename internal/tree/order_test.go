package tree

import (
	"testing"

	"github.com/google/uuid"
	"github.com/matthewbaird/formbuilder/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func members(ids ...uuid.UUID) []member {
	out := make([]member, len(ids))
	for i, id := range ids {
		out[i] = member{ID: id, OrderIndex: i}
	}
	return out
}

func TestNextIndex(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	assert.Equal(t, 0, nextIndex(nil, uuid.Nil))
	assert.Equal(t, 3, nextIndex(members(a, b, c), uuid.Nil))
	// A gap left by a delete is not reused.
	assert.Equal(t, 6, nextIndex([]member{{a, 0}, {b, 5}}, uuid.Nil))
	// Re-appending the last member keeps it last.
	assert.Equal(t, 2, nextIndex(members(a, b, c), c))
	assert.Equal(t, 3, nextIndex(members(a, b, c), a))
}

func TestPlanOrder_OnlyChangedIndices(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	assert.Empty(t, planOrder(members(a, b, c), []uuid.UUID{a, b, c}))
	assert.Equal(t, map[uuid.UUID]int{a: 1, b: 0}, planOrder(members(a, b, c), []uuid.UUID{b, a, c}))

	// A gapped group is compacted.
	gapped := []member{{a, 0}, {b, 4}}
	assert.Equal(t, map[uuid.UUID]int{b: 1}, planOrder(gapped, []uuid.UUID{a, b}))
}

func TestCheckReorderList(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	scope := types.SiblingScope{Kind: types.KindPage, ID: uuid.New()}
	foreign := uuid.New()
	missing := uuid.New()
	exists := func(id uuid.UUID) error {
		if id == foreign {
			return nil
		}
		return NewNotFound(types.KindComponent, id)
	}

	tests := []struct {
		name      string
		requested []uuid.UUID
		check     func(error) bool
	}{
		{"empty", nil, IsValidation},
		{"duplicate", []uuid.UUID{a, a}, IsValidation},
		{"subset", []uuid.UUID{b}, IsValidation},
		{"foreign member", []uuid.UUID{a, b, foreign}, IsValidation},
		{"unknown id", []uuid.UUID{a, missing}, IsNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkReorderList(scope, members(a, b), tt.requested, exists)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error type: %v", err)
		})
	}

	assert.NoError(t, checkReorderList(scope, members(a, b), []uuid.UUID{b, a}, exists))
}

func TestMoveInput_IsNoop(t *testing.T) {
	page := uuid.New()
	assert.True(t, MoveInput{}.IsNoop())
	assert.False(t, MoveInput{ParentSet: true}.IsNoop())
	assert.False(t, MoveInput{TargetPageID: &page}.IsNoop())
}

func TestCheckDense(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	assert.Empty(t, checkDense(types.KindPage, uuid.New(), members(a, b)))

	v := checkDense(types.KindPage, uuid.New(), []member{{a, 0}, {b, 2}})
	require.Len(t, v, 1)
	assert.Equal(t, RuleDenseOrder, v[0].Rule)
}

func TestErrorMessages(t *testing.T) {
	id := uuid.MustParse("5d3c7b0a-1f2e-4d5c-9b8a-7f6e5d4c3b2a")
	assert.Equal(t, "page not found with id: "+id.String(), NewNotFound(types.KindPage, id).Error())
	assert.Equal(t, "validation: name is required", requireText("name", "  ").Error())
}
