package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"go.etcd.io/bbolt"

	"ibot/internal/domain"
	"ibot/internal/log"
	"ibot/internal/port"
)

func newTestStore(t *testing.T) (*BoltStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "convos.db")
	s, err := NewBoltStore(path, log.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestCreateAndHistory(t *testing.T) {
	s, _ := newTestStore(t)

	id, err := s.Create("ada", "How do I deploy the staging environment?")
	if err != nil {
		t.Fatal(err)
	}
	if id == "" {
		t.Fatal("empty conversation id")
	}

	history, err := s.History("ada", id)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 0 {
		t.Errorf("new conversation should have empty history, got %d messages", len(history))
	}
}

func TestTitleTruncation(t *testing.T) {
	s, _ := newTestStore(t)

	long := strings.Repeat("x", 100)
	if _, err := s.Create("ada", long); err != nil {
		t.Fatal(err)
	}

	refs, err := s.List("ada")
	if err != nil {
		t.Fatal(err)
	}
	want := strings.Repeat("x", 45) + "..."
	if refs[0].Title != want {
		t.Errorf("title = %q, want %q", refs[0].Title, want)
	}

	// Short messages still carry the ellipsis marker.
	if _, err := s.Create("ada", "hi"); err != nil {
		t.Fatal(err)
	}
	refs, _ = s.List("ada")
	if refs[0].Title != "hi..." {
		t.Errorf("short title = %q", refs[0].Title)
	}
}

func TestAppendOrdering(t *testing.T) {
	s, _ := newTestStore(t)

	id, _ := s.Create("ada", "first")

	const pairs = 4
	for i := 0; i < pairs; i++ {
		err := s.Append("ada", id,
			domain.Message{Role: domain.RoleUser, Content: fmt.Sprintf("q%d", i)},
			domain.Message{Role: domain.RoleAssistant, Content: fmt.Sprintf("a%d", i)},
		)
		if err != nil {
			t.Fatal(err)
		}
	}

	history, err := s.History("ada", id)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2*pairs {
		t.Fatalf("expected %d messages, got %d", 2*pairs, len(history))
	}
	for i := 0; i < pairs; i++ {
		if history[2*i].Content != fmt.Sprintf("q%d", i) || history[2*i+1].Content != fmt.Sprintf("a%d", i) {
			t.Fatalf("messages out of insertion order at pair %d", i)
		}
	}
}

func TestAppendUnknownConversation(t *testing.T) {
	s, _ := newTestStore(t)
	s.Create("ada", "first")

	err := s.Append("ada", "no-such-id", domain.Message{Role: domain.RoleUser, Content: "lost?"})
	if !errors.Is(err, port.ErrConversationNotFound) {
		t.Errorf("expected ErrConversationNotFound, got %v", err)
	}

	// A valid id owned by a different user is equally unknown.
	id, _ := s.Create("grace", "hers")
	err = s.Append("ada", id, domain.Message{Role: domain.RoleUser, Content: "mine?"})
	if !errors.Is(err, port.ErrConversationNotFound) {
		t.Errorf("expected ErrConversationNotFound across users, got %v", err)
	}
}

func TestListMostRecentFirst(t *testing.T) {
	s, _ := newTestStore(t)

	first, _ := s.Create("ada", "oldest")
	second, _ := s.Create("ada", "middle")
	third, _ := s.Create("ada", "newest")

	refs, err := s.List("ada")
	if err != nil {
		t.Fatal(err)
	}
	gotIDs := []string{refs[0].ID, refs[1].ID, refs[2].ID}
	wantIDs := []string{third, second, first}
	if !reflect.DeepEqual(gotIDs, wantIDs) {
		t.Errorf("list order = %v, want %v", gotIDs, wantIDs)
	}
}

func TestHistoryUnknownIsEmpty(t *testing.T) {
	s, _ := newTestStore(t)

	history, err := s.History("nobody", "nothing")
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 0 {
		t.Errorf("expected empty history, got %d", len(history))
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "convos.db")

	s, err := NewBoltStore(path, log.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	adaID, _ := s.Create("ada", "ada's question")
	s.Append("ada", adaID,
		domain.Message{Role: domain.RoleUser, Content: "ada's question"},
		domain.Message{Role: domain.RoleAssistant, Content: "an answer"},
	)
	graceID, _ := s.Create("grace", "grace's question")

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reloaded, err := NewBoltStore(path, log.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer reloaded.Close()

	history, err := reloaded.History("ada", adaID)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 || history[1].Content != "an answer" {
		t.Errorf("ada's history did not survive reload: %+v", history)
	}

	refs, _ := reloaded.List("grace")
	if len(refs) != 1 || refs[0].ID != graceID {
		t.Errorf("grace's conversations did not survive reload: %+v", refs)
	}
}

func TestCorruptRecordDegradesToEmpty(t *testing.T) {
	s, _ := newTestStore(t)

	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketConversations).Put([]byte("ada"), []byte("{definitely not json"))
	})
	if err != nil {
		t.Fatal(err)
	}

	refs, err := s.List("ada")
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 0 {
		t.Errorf("corrupt record should read as empty, got %+v", refs)
	}

	// And the user can start over.
	if _, err := s.Create("ada", "fresh start"); err != nil {
		t.Fatal(err)
	}
}

func TestConcurrentAppends(t *testing.T) {
	s, _ := newTestStore(t)
	id, _ := s.Create("ada", "race")

	const n = 20
	done := make(chan error, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			done <- s.Append("ada", id, domain.Message{
				Role:    domain.RoleUser,
				Content: fmt.Sprintf("m%d", i),
			})
		}(i)
	}
	for i := 0; i < n; i++ {
		if err := <-done; err != nil {
			t.Fatal(err)
		}
	}

	history, _ := s.History("ada", id)
	if len(history) != n {
		t.Errorf("lost updates: got %d messages, want %d", len(history), n)
	}
}
