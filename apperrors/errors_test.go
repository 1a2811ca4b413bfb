package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(NotFound("Restaurant not found.")))
	assert.Equal(t, KindConflict, KindOf(Conflict("slot taken")))
	assert.Equal(t, KindBadRequest, KindOf(BadRequest("guests must be between %d and %d", 2, 4)))
	assert.Equal(t, KindForbidden, KindOf(Forbidden("nope")))
	assert.Equal(t, KindUnknown, KindOf(errors.New("boom")))
	assert.Equal(t, KindUnknown, KindOf(nil))
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("create reservation: %w", Conflict("Table is already reserved for the requested time slot."))

	assert.True(t, Is(err, KindConflict))
	assert.False(t, Is(err, KindBadRequest))
	assert.Equal(t, "create reservation: Table is already reserved for the requested time slot.", err.Error())
}

func TestDetailFormatting(t *testing.T) {
	err := BadRequest("Number of guests must be between 2 and table capacity (%d).", 4)
	assert.Equal(t, "Number of guests must be between 2 and table capacity (4).", err.Error())
	assert.Equal(t, "bad_request", KindBadRequest.String())
}
