package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamal-hamza/hx-cli/internal/core/domain"
)

func tagIDs(tags []domain.Tag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.Identifier
	}
	return out
}

func TestAddTag_RetroactivelyFalse(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := addFinalized(t, s, "One")
	b := addFinalized(t, s, "Two")

	tag, err := s.AddTag(ctx, "Outdoor", 0)
	require.NoError(t, err)
	assert.Equal(t, domain.Tag{Name: "Outdoor", Identifier: "tag_outdoor"}, tag)

	for _, id := range []int64{a.ID, b.ID} {
		v, err := s.GetTagValue(ctx, "outdoor", id)
		require.NoError(t, err)
		assert.False(t, v)
	}
}

func TestAddTag_InvokingAssetGetsTrue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := addFinalized(t, s, "One")
	b := addFinalized(t, s, "Two")

	_, err := s.AddTag(ctx, "Sunny", a.ID)
	require.NoError(t, err)

	v, err := s.GetTagValue(ctx, "tag_sunny", a.ID)
	require.NoError(t, err)
	assert.True(t, v)
	v, err = s.GetTagValue(ctx, "tag_sunny", b.ID)
	require.NoError(t, err)
	assert.False(t, v)

	_, err = s.AddTag(ctx, "Cloudy", 999)
	assert.ErrorIs(t, err, domain.ErrUnknownAsset)
	tags, err := s.ListTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"tag_sunny"}, tagIDs(tags), "failed add must not define the tag")
}

func TestAddTag_Policy(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := addFinalized(t, s, "One")

	_, err := s.AddTag(ctx, "Golden Hour", 0)
	require.NoError(t, err)

	t.Run("same normalized name is a no-op", func(t *testing.T) {
		tag, err := s.AddTag(ctx, "  golden   HOUR ", a.ID)
		require.NoError(t, err)
		assert.Equal(t, "Golden Hour", tag.Name)

		tags, err := s.ListTags(ctx)
		require.NoError(t, err)
		assert.Len(t, tags, 1)

		v, err := s.GetTagValue(ctx, tag.Identifier, a.ID)
		require.NoError(t, err)
		assert.True(t, v)
	})

	t.Run("different name with same identifier collides", func(t *testing.T) {
		_, err := s.AddTag(ctx, "Golden Hour!", 0)
		assert.ErrorIs(t, err, domain.ErrTagCollision)
	})

	t.Run("blank name", func(t *testing.T) {
		_, err := s.AddTag(ctx, "   ", 0)
		assert.ErrorIs(t, err, domain.ErrInvalidTag)
	})
}

func TestListTags_CreationOrderAcrossSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, name := range []string{"Zulu", "Alpha", "Mike"} {
		_, err := s.AddTag(ctx, name, 0)
		require.NoError(t, err)
	}

	want := []string{"tag_zulu", "tag_alpha", "tag_mike"}
	tags, err := s.ListTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, tagIDs(tags))

	s2, err := Open(ctx, s.Path())
	require.NoError(t, err)
	defer s2.Close()
	tags, err = s2.ListTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, tagIDs(tags))
}

func TestRemoveTag_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := addFinalized(t, s, "One")
	_, err := s.AddTag(ctx, "Outdoor", a.ID)
	require.NoError(t, err)

	before, err := s.Get(ctx, a.ID)
	require.NoError(t, err)

	tag, err := s.AddTag(ctx, "Golden Hour", 0)
	require.NoError(t, err)
	require.NoError(t, s.RemoveTag(ctx, tag.Identifier))

	after, err := s.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, before.Tags, after.Tags)

	tags, err := s.ListTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"tag_outdoor"}, tagIDs(tags))
}

func TestRemoveTag_DropsValuesEverywhere(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := addFinalized(t, s, "One")
	_, err := s.AddTag(ctx, "Outdoor", a.ID)
	require.NoError(t, err)

	require.NoError(t, s.RemoveTag(ctx, "Outdoor"))

	got, err := s.Get(ctx, a.ID)
	require.NoError(t, err)
	_, present := got.Tags["tag_outdoor"]
	assert.False(t, present)

	_, err = s.GetTagValue(ctx, "tag_outdoor", a.ID)
	assert.ErrorIs(t, err, domain.ErrUnknownTag)

	// Re-adding starts from false
	_, err = s.AddTag(ctx, "Outdoor", 0)
	require.NoError(t, err)
	v, err := s.GetTagValue(ctx, "tag_outdoor", a.ID)
	require.NoError(t, err)
	assert.False(t, v)
}

func TestRemoveTag_Unknown(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.AddTag(ctx, "Outdoor", 0)
	require.NoError(t, err)

	err = s.RemoveTag(ctx, "tag_nonexistent")
	assert.ErrorIs(t, err, domain.ErrUnknownTag)
	var schemaErr *domain.SchemaError
	assert.False(t, errors.As(err, &schemaErr))

	tags, err := s.ListTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"tag_outdoor"}, tagIDs(tags))
}

func TestAddRemoveSequence(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := addFinalized(t, s, "One")

	ops := []struct {
		add  bool
		name string
	}{
		{true, "A"}, {true, "B"}, {false, "A"}, {true, "C"}, {true, "A"}, {false, "B"},
	}
	expected := map[string]bool{}
	for i, op := range ops {
		if op.add {
			_, err := s.AddTag(ctx, op.name, 0)
			require.NoError(t, err)
			id, _ := domain.DeriveIdentifier(op.name)
			expected[id] = true
		} else {
			require.NoError(t, s.RemoveTag(ctx, op.name))
			id, _ := domain.DeriveIdentifier(op.name)
			delete(expected, id)
		}
		// Unrelated record mutation between schema changes
		require.NoError(t, s.UpdateName(ctx, a.ID, "One"+string(rune('a'+i))))
	}

	tags, err := s.ListTags(ctx)
	require.NoError(t, err)
	got := map[string]bool{}
	for _, tg := range tags {
		got[tg.Identifier] = true
	}
	assert.Equal(t, expected, got)
}

func TestSetTagValue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := addFinalized(t, s, "One")
	_, err := s.AddTag(ctx, "Outdoor", 0)
	require.NoError(t, err)

	require.NoError(t, s.SetTagValue(ctx, "tag_outdoor", a.ID, true))
	require.NoError(t, s.SetTagValue(ctx, "tag_outdoor", a.ID, true))
	v, err := s.GetTagValue(ctx, "tag_outdoor", a.ID)
	require.NoError(t, err)
	assert.True(t, v)

	require.NoError(t, s.SetTagValue(ctx, "tag_outdoor", a.ID, false))
	v, err = s.GetTagValue(ctx, "tag_outdoor", a.ID)
	require.NoError(t, err)
	assert.False(t, v)

	assert.ErrorIs(t, s.SetTagValue(ctx, "tag_missing", a.ID, true), domain.ErrUnknownTag)
	assert.ErrorIs(t, s.SetTagValue(ctx, "tag_outdoor", 404, true), domain.ErrUnknownAsset)
}

func TestTagUsage_CountsFinalizedOnly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := addFinalized(t, s, "One")
	pending, err := s.Create(ctx, "Pending")
	require.NoError(t, err)

	_, err = s.AddTag(ctx, "Outdoor", a.ID)
	require.NoError(t, err)
	require.NoError(t, s.SetTagValue(ctx, "tag_outdoor", pending.ID, true))
	_, err = s.AddTag(ctx, "Indoor", 0)
	require.NoError(t, err)

	usage, err := s.TagUsage(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"tag_outdoor": 1, "tag_indoor": 0}, usage)
}

func TestAddTag_PrefixedNameRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.AddTag(ctx, "tag_sunset", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidTag)

	tags, err := s.ListTags(ctx)
	require.NoError(t, err)
	assert.Empty(t, tags)
}
