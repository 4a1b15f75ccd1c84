package namespace

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/joshjon/kit/errtag"
	"github.com/joshjon/kit/testutil"
	"github.com/stretchr/testify/suite"
)

const defaultTestSuiteTimeout = 5 * time.Second

// RepositoryTestSuite verifies that a Repository implementation satisfies
// the expected behavior required by the application. All tests must pass
// for an implementation to be considered compliant.
type RepositoryTestSuite struct {
	// Timeout defines the maximum duration for each test (default: 5s).
	Timeout time.Duration

	// Setup is called before every test and must return an empty repository.
	Setup func(t *testing.T) Repository

	repo Repository
	suite.Suite
}

func (s *RepositoryTestSuite) SetupTest() {
	s.Require().NotNil(s.Setup, "Setup func required")

	repo := s.Setup(s.T())
	s.Require().NotNil(repo, "Repository must not be nil")
	s.repo = repo

	if s.Timeout == 0 {
		s.Timeout = defaultTestSuiteTimeout
	}
}

func (s *RepositoryTestSuite) TestInsertGet() {
	ctx, cancel := context.WithTimeout(s.T().Context(), s.Timeout)
	defer cancel()

	id := MustIdentity(testutil.RandName())
	want := map[string]string{"a": "b", "owner": testutil.RandName()}

	err := s.repo.Insert(ctx, id, want)
	s.Require().NoError(err)

	got, err := s.repo.Get(ctx, id)
	s.Require().NoError(err)
	s.Equal(want, got)

	exists, err := s.repo.Exists(ctx, id)
	s.Require().NoError(err)
	s.True(exists)
}

func (s *RepositoryTestSuite) TestInsertEmptyProperties() {
	ctx, cancel := context.WithTimeout(s.T().Context(), s.Timeout)
	defer cancel()

	id := MustIdentity(testutil.RandName())

	err := s.repo.Insert(ctx, id, nil)
	s.Require().NoError(err)

	got, err := s.repo.Get(ctx, id)
	s.Require().NoError(err)
	s.NotNil(got)
	s.Empty(got)
}

func (s *RepositoryTestSuite) TestInsertStoresCopy() {
	ctx, cancel := context.WithTimeout(s.T().Context(), s.Timeout)
	defer cancel()

	id := MustIdentity(testutil.RandName())
	props := map[string]string{"a": "b"}

	err := s.repo.Insert(ctx, id, props)
	s.Require().NoError(err)
	props["a"] = "mutated"

	got, err := s.repo.Get(ctx, id)
	s.Require().NoError(err)
	got["c"] = "d"

	got, err = s.repo.Get(ctx, id)
	s.Require().NoError(err)
	s.Equal(map[string]string{"a": "b"}, got)
}

func (s *RepositoryTestSuite) TestInsertConflict() {
	ctx, cancel := context.WithTimeout(s.T().Context(), s.Timeout)
	defer cancel()

	id := MustIdentity(testutil.RandName())

	err := s.repo.Insert(ctx, id, map[string]string{"a": "b"})
	s.Require().NoError(err)

	err = s.repo.Insert(ctx, id, map[string]string{"c": "d"})
	s.True(errtag.HasTag[errtag.Conflict](err))

	got, err := s.repo.Get(ctx, id)
	s.Require().NoError(err)
	s.Equal(map[string]string{"a": "b"}, got)
}

func (s *RepositoryTestSuite) TestInsertMultiLevelWithoutParent() {
	ctx, cancel := context.WithTimeout(s.T().Context(), s.Timeout)
	defer cancel()

	parent := MustIdentity(testutil.RandName())
	child := MustIdentity(append(parent.Levels(), "child")...)

	err := s.repo.Insert(ctx, child, nil)
	s.Require().NoError(err)

	exists, err := s.repo.Exists(ctx, parent)
	s.Require().NoError(err)
	s.False(exists)

	exists, err = s.repo.Exists(ctx, child)
	s.Require().NoError(err)
	s.True(exists)
}

func (s *RepositoryTestSuite) TestGetNotFound() {
	ctx, cancel := context.WithTimeout(s.T().Context(), s.Timeout)
	defer cancel()

	_, err := s.repo.Get(ctx, MustIdentity(testutil.RandName()))
	s.True(errtag.HasTag[errtag.NotFound](err))
}

func (s *RepositoryTestSuite) TestRemove() {
	ctx, cancel := context.WithTimeout(s.T().Context(), s.Timeout)
	defer cancel()

	id := MustIdentity(testutil.RandName(), "a")

	err := s.repo.Insert(ctx, id, map[string]string{"a": "b"})
	s.Require().NoError(err)

	err = s.repo.Remove(ctx, id)
	s.Require().NoError(err)

	_, err = s.repo.Get(ctx, id)
	s.True(errtag.HasTag[errtag.NotFound](err))

	err = s.repo.Remove(ctx, id)
	s.True(errtag.HasTag[errtag.NotFound](err))

	// re-create after drop starts with fresh properties
	err = s.repo.Insert(ctx, id, map[string]string{"c": "d"})
	s.Require().NoError(err)
	got, err := s.repo.Get(ctx, id)
	s.Require().NoError(err)
	s.Equal(map[string]string{"c": "d"}, got)
}

func (s *RepositoryTestSuite) TestListChildren() {
	ctx, cancel := context.WithTimeout(s.T().Context(), s.Timeout)
	defer cancel()

	got, err := s.repo.ListChildren(ctx, nil)
	s.Require().NoError(err)
	s.Empty(got)

	ids := []Identity{
		MustIdentity("list_foo2"),
		MustIdentity("list_foo3", "b"),
		MustIdentity("list_foo1"),
		MustIdentity("list_foo3"),
		MustIdentity("list_foo3", "a"),
		MustIdentity("list_foo3", "a", "deep"),
		MustIdentity("list_foo4", "orphan"),
	}
	for _, id := range ids {
		s.Require().NoError(s.repo.Insert(ctx, id, nil))
	}

	got, err = s.repo.ListChildren(ctx, nil)
	s.Require().NoError(err)
	SortIdentities(got)
	s.Equal([]string{"list_foo1", "list_foo2", "list_foo3"}, displayForms(got))

	parent := MustIdentity("list_foo3")
	got, err = s.repo.ListChildren(ctx, &parent)
	s.Require().NoError(err)
	SortIdentities(got)
	s.Equal([]string{"list_foo3.a", "list_foo3.b"}, displayForms(got))

	leaf := MustIdentity("list_foo1")
	got, err = s.repo.ListChildren(ctx, &leaf)
	s.Require().NoError(err)
	s.Empty(got)

	missing := MustIdentity("list_fooxx")
	_, err = s.repo.ListChildren(ctx, &missing)
	s.True(errtag.HasTag[errtag.NotFound](err))

	// children exist but the parent was never created
	orphanParent := MustIdentity("list_foo4")
	_, err = s.repo.ListChildren(ctx, &orphanParent)
	s.True(errtag.HasTag[errtag.NotFound](err))
}

func (s *RepositoryTestSuite) TestUpdateProperties() {
	ctx, cancel := context.WithTimeout(s.T().Context(), s.Timeout)
	defer cancel()

	id := MustIdentity(testutil.RandName())
	err := s.repo.Insert(ctx, id, map[string]string{"a": "b"})
	s.Require().NoError(err)

	diff, err := s.repo.UpdateProperties(ctx, id, []string{"a", "a1"}, []Property{{Key: "b", Value: "c"}})
	s.Require().NoError(err)
	s.Equal([]string{"a"}, diff.Removed)
	s.Equal([]string{"a1"}, diff.Missing)
	s.Equal([]string{"b"}, diff.Updated)

	got, err := s.repo.Get(ctx, id)
	s.Require().NoError(err)
	s.Equal(map[string]string{"b": "c"}, got)
}

func (s *RepositoryTestSuite) TestUpdatePropertiesUpdateWins() {
	ctx, cancel := context.WithTimeout(s.T().Context(), s.Timeout)
	defer cancel()

	id := MustIdentity(testutil.RandName())
	err := s.repo.Insert(ctx, id, map[string]string{"a": "b", "x": "y"})
	s.Require().NoError(err)

	diff, err := s.repo.UpdateProperties(ctx, id,
		[]string{"a", "x", "x"},
		[]Property{{Key: "a", Value: "new"}, {Key: "z", Value: "1"}},
	)
	s.Require().NoError(err)
	s.Equal([]string{"x"}, diff.Removed)
	s.Equal([]string{}, diff.Missing)
	s.Equal([]string{"a", "z"}, diff.Updated)

	got, err := s.repo.Get(ctx, id)
	s.Require().NoError(err)
	s.Equal(map[string]string{"a": "new", "z": "1"}, got)
}

func (s *RepositoryTestSuite) TestUpdatePropertiesNotFound() {
	ctx, cancel := context.WithTimeout(s.T().Context(), s.Timeout)
	defer cancel()

	_, err := s.repo.UpdateProperties(ctx, MustIdentity(testutil.RandName()), []string{"a"}, nil)
	s.True(errtag.HasTag[errtag.NotFound](err))
}

func (s *RepositoryTestSuite) TestUpdatePropertiesConcurrent() {
	ctx, cancel := context.WithTimeout(s.T().Context(), s.Timeout)
	defer cancel()

	id := MustIdentity(testutil.RandName())
	err := s.repo.Insert(ctx, id, nil)
	s.Require().NoError(err)

	const workers = 10
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := string(rune('a' + i))
			_, err := s.repo.UpdateProperties(ctx, id, nil, []Property{{Key: key, Value: key}})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.Require().NoError(err)
	}

	got, err := s.repo.Get(ctx, id)
	s.Require().NoError(err)
	s.Len(got, workers)
}

func displayForms(ids []Identity) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
