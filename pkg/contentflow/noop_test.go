package contentflow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/tendant/content-flow/pkg/contentflow"
)

func TestMultiEventSink(t *testing.T) {
	boom := errors.New("boom")
	first := &recordingSink{failWith: boom}
	second := &recordingSink{}
	sink := contentflow.MultiEventSink{first, second, contentflow.NewNoopEventSink()}

	ctx := context.Background()
	c := &contentflow.Content{ID: uuid.New(), Status: string(contentflow.ContentStatusPosted)}

	// a failing sink does not stop the others
	err := sink.ContentStatusChanged(ctx, c, contentflow.ContentStatusInProduction)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"status:in_production->posted"}, second.Events())

	first.failWith = nil
	assert.NoError(t, sink.ContentDeleted(ctx, c.ID))
	assert.Equal(t, []string{"status:in_production->posted", "content_deleted"}, first.Events())
	assert.Equal(t, first.Events(), second.Events())
}
