package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/calehh/hac-gov/space"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "space.db"), cmtlog.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func voteDoc(id, proposal, owner, side string) space.Document {
	return space.Document{
		space.FieldID:      id,
		space.FieldDocType: "vote",
		"voteProposalId":   proposal,
		"owner":            owner,
		"vote":             side,
		"votes":            1,
		"title":            "not indexed",
	}
}

var schema = space.Schema{
	"voteProposalId": {Type: space.Keyword},
	"owner":          {Type: space.Keyword},
	"vote":           {Type: space.Text, Facet: true},
	"votes":          {Type: space.Long},
	"title":          {Type: space.Text},
}

func TestStoreCommitAndQuery(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	require.NoError(t, s.RegisterSchema(ctx, "gov", schema))
	require.NoError(t, s.Put(ctx, "gov", voteDoc("p/vote/0", "p", "alice", "for")))
	require.NoError(t, s.Put(ctx, "gov", voteDoc("p/vote/1", "p", "bob", "against")))
	require.NoError(t, s.Put(ctx, "gov", voteDoc("p/vote/2", "p", "carol", "for")))
	require.NoError(t, s.Put(ctx, "gov", voteDoc("q/vote/0", "q", "alice", "for")))

	// buffered writes are not visible before commit
	doc, err := s.FindOne(ctx, "gov", space.Key{ID: "p/vote/0", Type: "vote"})
	require.NoError(t, err)
	require.Nil(t, doc)

	require.NoError(t, s.Commit(ctx))

	doc, err = s.FindOne(ctx, "gov", space.Key{ID: "p/vote/0", Type: "vote"})
	require.NoError(t, err)
	require.Equal(t, "alice", doc.String("owner"))
	require.Equal(t, "1", doc.String("votes"))

	res, err := s.FindMany(ctx, "gov", space.Query{
		Equals: map[string]any{"voteProposalId": "p", space.FieldDocType: "vote"},
		Limit:  2,
		Facets: []string{"vote"},
	})
	require.NoError(t, err)
	require.Equal(t, 3, res.TotalHits)
	require.Len(t, res.Hits, 2)
	require.Equal(t, "p/vote/0", res.Hits[0].String(space.FieldID))
	require.Equal(t, "p/vote/1", res.Hits[1].String(space.FieldID))
	require.Equal(t, map[string]int{"for": 2, "against": 1}, res.Facets["vote"])

	res, err = s.FindMany(ctx, "gov", space.Query{Equals: map[string]any{"owner": "alice", "voteProposalId": "q"}})
	require.NoError(t, err)
	require.Equal(t, 1, res.TotalHits)

	res, err = s.FindMany(ctx, "gov", space.Query{Equals: map[string]any{"owner": "nobody"}})
	require.NoError(t, err)
	require.Zero(t, res.TotalHits)
	require.Empty(t, res.Hits)
}

func TestStoreUpsertReindexes(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	require.NoError(t, s.RegisterSchema(ctx, "gov", schema))
	require.NoError(t, s.Put(ctx, "gov", voteDoc("p/vote/0", "p", "alice", "for")))
	require.NoError(t, s.Commit(ctx))
	require.NoError(t, s.Put(ctx, "gov", voteDoc("p/vote/0", "p", "alice", "against")))
	require.NoError(t, s.Commit(ctx))

	res, err := s.FindMany(ctx, "gov", space.Query{Equals: map[string]any{"vote": "for"}})
	require.NoError(t, err)
	require.Zero(t, res.TotalHits)
	res, err = s.FindMany(ctx, "gov", space.Query{Equals: map[string]any{"vote": "against"}})
	require.NoError(t, err)
	require.Equal(t, 1, res.TotalHits)
}

func TestStorePutNewFailsWholeCommit(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	require.NoError(t, s.PutNew(ctx, "gov", voteDoc("p/closed", "p", "alice", "for")))
	require.NoError(t, s.Commit(ctx))

	require.NoError(t, s.Put(ctx, "gov", voteDoc("p/vote/9", "p", "dave", "for")))
	require.NoError(t, s.PutNew(ctx, "gov", voteDoc("p/closed", "p", "bob", "against")))
	require.ErrorIs(t, s.Commit(ctx), space.ErrExists)

	doc, err := s.FindOne(ctx, "gov", space.Key{ID: "p/vote/9", Type: "vote"})
	require.NoError(t, err)
	require.Nil(t, doc)
}

func TestStoreCommitTimeout(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.Put(context.Background(), "gov", voteDoc("p/vote/0", "p", "alice", "for")))
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)
	require.Error(t, s.Commit(ctx))

	doc, err := s.FindOne(context.Background(), "gov", space.Key{ID: "p/vote/0", Type: "vote"})
	require.NoError(t, err)
	require.Nil(t, doc)
}

func TestStoreSchemasSurviveReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "space.db")
	s, err := Open(path, cmtlog.NewNopLogger())
	require.NoError(t, err)
	require.NoError(t, s.RegisterSchema(ctx, "gov", schema))
	require.NoError(t, s.Commit(ctx))
	require.NoError(t, s.Close())

	s, err = Open(path, cmtlog.NewNopLogger())
	require.NoError(t, err)
	defer s.Close()
	require.Equal(t, schema, s.schemas["gov"])
}

func TestOverlayOverStore(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	block := space.NewOverlay(s)
	action := space.NewOverlay(block)
	require.NoError(t, action.RegisterSchema(ctx, "gov", schema))
	require.NoError(t, action.PutNew(ctx, "gov", voteDoc("p/vote/0", "p", "alice", "for")))
	require.NoError(t, action.Merge(ctx))
	require.NoError(t, block.Commit(ctx))

	res, err := s.FindMany(ctx, "gov", space.Query{Equals: map[string]any{"voteProposalId": "p"}})
	require.NoError(t, err)
	require.Equal(t, 1, res.TotalHits)
}
