package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertFileInsertsThenUpdates(t *testing.T) {
	s := openTestStore(t)
	tx, err := s.BeginUpdate(context.Background())
	require.NoError(t, err)

	now := time.Now()
	id1, err := tx.UpsertFile("/proj/a.cpp", "/proj", now, false)
	require.NoError(t, err)
	require.NotZero(t, id1)

	later := now.Add(time.Minute)
	id2, err := tx.UpsertFile("/proj/a.cpp", "/proj", later, false)
	require.NoError(t, err)
	require.Equal(t, id1, id2)

	require.NoError(t, tx.Commit())

	files, err := func() ([]FileRow, error) {
		tx2, err := s.BeginUpdate(context.Background())
		require.NoError(t, err)
		defer tx2.Rollback()
		return tx2.ExistingFiles()
	}()
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, "/proj/a.cpp", files[0].Path)
	require.WithinDuration(t, later, files[0].LastUpdate, time.Second)
}

func TestReplaceArgsReplacesRatherThanAppends(t *testing.T) {
	s := openTestStore(t)
	tx, err := s.BeginUpdate(context.Background())
	require.NoError(t, err)

	id, err := tx.UpsertFile("/proj/a.cpp", "/proj", time.Now(), false)
	require.NoError(t, err)

	require.NoError(t, tx.ReplaceArgs(id, []string{"-std=c++17", "-I/proj/include"}))
	args, err := tx.QueryArgsByFileID(id)
	require.NoError(t, err)
	require.Equal(t, []string{"-std=c++17", "-I/proj/include"}, args)

	require.NoError(t, tx.ReplaceArgs(id, []string{"-std=c++20"}))
	args, err = tx.QueryArgsByFileID(id)
	require.NoError(t, err)
	require.Equal(t, []string{"-std=c++20"}, args)
}

func TestReplaceRefsStoresNonDefinitionAsReferenceOnly(t *testing.T) {
	s := openTestStore(t)
	tx, err := s.BeginUpdate(context.Background())
	require.NoError(t, err)

	id, err := tx.UpsertFile("/proj/a.cpp", "/proj", time.Now(), false)
	require.NoError(t, err)

	refs := map[string]map[RefLocation]RefValue{
		"c:@F@foo#": {
			{Line: 10, Column: 1}: {IsDefinition: false, Kind: 101},
		},
	}
	require.NoError(t, tx.ReplaceRefs(id, refs))
	require.NoError(t, tx.Commit())

	defs, err := s.QueryDefinitions("c:@F@foo#")
	require.NoError(t, err)
	require.Empty(t, defs)

	all, err := s.QueryReferences("c:@F@foo#")
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.False(t, all[0].IsDefinition)
}

func TestDeleteOrDemoteDeletesWhenNotIncludedElsewhere(t *testing.T) {
	s := openTestStore(t)
	tx, err := s.BeginUpdate(context.Background())
	require.NoError(t, err)

	_, err = tx.UpsertFile("/proj/a.h", "/proj", time.Now(), true)
	require.NoError(t, err)
	require.NoError(t, tx.DeleteOrDemote("/proj/a.h"))
	require.NoError(t, tx.Commit())

	tx2, err := s.BeginUpdate(context.Background())
	require.NoError(t, err)
	defer tx2.Rollback()
	files, err := tx2.ExistingFiles()
	require.NoError(t, err)
	require.Empty(t, files)
}

func TestDeleteOrDemoteDemotesWhenStillIncluded(t *testing.T) {
	s := openTestStore(t)
	tx, err := s.BeginUpdate(context.Background())
	require.NoError(t, err)

	sourceID, err := tx.UpsertFile("/proj/a.cpp", "/proj", time.Now(), false)
	require.NoError(t, err)
	headerID, err := tx.UpsertFile("/proj/a.h", "/proj", time.Now(), false)
	require.NoError(t, err)
	require.NoError(t, tx.ReplaceIncludes(sourceID, []ResolvedInclude{
		{IncludedFileID: headerID, Line: 1, Column: 1},
	}))

	// a.h was recorded as a root and the driver requests delete_or_demote
	// on it; a.cpp's edge to it keeps it alive, so it is demoted instead.
	require.NoError(t, tx.DeleteOrDemote("/proj/a.h"))
	require.NoError(t, tx.Commit())

	tx2, err := s.BeginUpdate(context.Background())
	require.NoError(t, err)
	defer tx2.Rollback()
	files, err := tx2.ExistingFiles()
	require.NoError(t, err)
	require.Len(t, files, 2)
	for _, f := range files {
		if f.Path == "/proj/a.h" {
			require.True(t, f.IsIncluded)
		}
	}
}

func TestQueryDefinitionsOrdersByPathLineColumn(t *testing.T) {
	s := openTestStore(t)
	tx, err := s.BeginUpdate(context.Background())
	require.NoError(t, err)

	idB, err := tx.UpsertFile("/proj/b.cpp", "/proj", time.Now(), false)
	require.NoError(t, err)
	idA, err := tx.UpsertFile("/proj/a.cpp", "/proj", time.Now(), false)
	require.NoError(t, err)

	require.NoError(t, tx.ReplaceRefs(idB, map[string]map[RefLocation]RefValue{
		"c:@F@foo#": {{Line: 5, Column: 1}: {IsDefinition: true, Kind: 8}},
	}))
	require.NoError(t, tx.ReplaceRefs(idA, map[string]map[RefLocation]RefValue{
		"c:@F@foo#": {{Line: 20, Column: 1}: {IsDefinition: true, Kind: 8}},
	}))
	require.NoError(t, tx.Commit())

	defs, err := s.QueryDefinitions("c:@F@foo#")
	require.NoError(t, err)
	require.Len(t, defs, 2)
	require.Equal(t, "/proj/a.cpp", defs[0].Path)
	require.Equal(t, "/proj/b.cpp", defs[1].Path)
	require.Equal(t, "function declaration", defs[0].Description)
}

func TestQuerySubtypesFiltersByBaseSpecifierKind(t *testing.T) {
	s := openTestStore(t)
	tx, err := s.BeginUpdate(context.Background())
	require.NoError(t, err)

	id, err := tx.UpsertFile("/proj/a.cpp", "/proj", time.Now(), false)
	require.NoError(t, err)
	require.NoError(t, tx.ReplaceRefs(id, map[string]map[RefLocation]RefValue{
		"c:@S@Base": {
			{Line: 1, Column: 1}: {IsDefinition: false, Kind: KindBaseSpecifier},
			{Line: 2, Column: 1}: {IsDefinition: false, Kind: 43},
		},
	}))
	require.NoError(t, tx.Commit())

	subtypes, err := s.QuerySubtypes("c:@S@Base")
	require.NoError(t, err)
	require.Len(t, subtypes, 1)
	require.Equal(t, 1, subtypes[0].Line)
}

func TestQueryIncludingFiles(t *testing.T) {
	s := openTestStore(t)
	tx, err := s.BeginUpdate(context.Background())
	require.NoError(t, err)

	headerID, err := tx.UpsertFile("/proj/a.h", "/proj", time.Now(), true)
	require.NoError(t, err)
	sourceID, err := tx.UpsertFile("/proj/a.cpp", "/proj", time.Now(), false)
	require.NoError(t, err)
	require.NoError(t, tx.ReplaceIncludes(sourceID, []ResolvedInclude{
		{IncludedFileID: headerID, Line: 3, Column: 1},
	}))
	require.NoError(t, tx.Commit())

	including, err := s.QueryIncludingFiles("/proj/a.h")
	require.NoError(t, err)
	require.Len(t, including, 1)
	require.Equal(t, "/proj/a.cpp", including[0].Path)
	require.Equal(t, 3, including[0].Line)
}

func TestIncludedFileIDsAndDistinctIncludedTargets(t *testing.T) {
	s := openTestStore(t)
	tx, err := s.BeginUpdate(context.Background())
	require.NoError(t, err)

	headerID, err := tx.UpsertFile("/proj/a.h", "/proj", time.Now(), true)
	require.NoError(t, err)
	sourceID, err := tx.UpsertFile("/proj/a.cpp", "/proj", time.Now(), false)
	require.NoError(t, err)
	require.NoError(t, tx.ReplaceIncludes(sourceID, []ResolvedInclude{
		{IncludedFileID: headerID, Line: 1, Column: 1},
	}))

	included, err := tx.IncludedFileIDs()
	require.NoError(t, err)
	require.Equal(t, []int64{headerID}, included)

	targets, err := tx.DistinctIncludedTargets()
	require.NoError(t, err)
	require.Equal(t, []int64{headerID}, targets)

	require.NoError(t, tx.DeleteFileByID(headerID))
	require.NoError(t, tx.Commit())

	tx2, err := s.BeginUpdate(context.Background())
	require.NoError(t, err)
	defer tx2.Rollback()
	files, err := tx2.ExistingFiles()
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, "/proj/a.cpp", files[0].Path)
}

func TestDescribeKindFallsBackToUnknown(t *testing.T) {
	require.Equal(t, "???", DescribeKind(99999))
	require.Equal(t, "base specifier", DescribeKind(KindBaseSpecifier))
}
