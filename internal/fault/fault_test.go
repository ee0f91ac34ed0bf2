package fault

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfWrappedSentinel(t *testing.T) {
	errMissing := New(NotFound, "file not found")
	wrapped := fmt.Errorf("download: %w", errMissing)

	assert.Equal(t, NotFound, KindOf(wrapped))
	assert.Equal(t, "file not found", Message(wrapped))
	assert.True(t, errors.Is(wrapped, errMissing))
}

func TestUnclassifiedErrorsHideDetails(t *testing.T) {
	err := errors.New("open /var/lib/filevault/blobs/1234: permission denied")

	assert.Equal(t, StorageFault, KindOf(err))
	assert.Equal(t, "internal storage error", Message(err))
	assert.NotContains(t, Message(err), "/var/lib")
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "corrupt_hierarchy", CorruptHierarchy.String())
	assert.Equal(t, "storage_fault", Kind(99).String())
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		NotFound:              http.StatusNotFound,
		Duplicate:             http.StatusConflict,
		Validation:            http.StatusBadRequest,
		CorruptHierarchy:      http.StatusInternalServerError,
		AccountDeletionFailed: http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, HTTPStatus(New(kind, "x")), kind.String())
	}
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
}
