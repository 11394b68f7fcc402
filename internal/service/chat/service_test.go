package chat_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	chatmodel "github.com/lumichat/backend/internal/model/chat"
	chat "github.com/lumichat/backend/internal/service/chat"
	"github.com/lumichat/backend/internal/store"
)

func newTestService(t *testing.T) *chat.Service {
	t.Helper()
	db, err := store.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return chat.NewService(db)
}

func TestCreateAndGetSession(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "user_1000", "Ada", "ada@example.com")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}
	if session.Status != chatmodel.StatusActive {
		t.Fatalf("expected active status, got %s", session.Status)
	}
	if session.ID == "" {
		t.Fatal("expected generated session id")
	}

	got, err := svc.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession err: %v", err)
	}
	if got.ParticipantID != "user_1000" {
		t.Fatalf("unexpected participant: %s", got.ParticipantID)
	}
	if got.ParticipantName != "Ada" || got.ParticipantEmail != "ada@example.com" {
		t.Fatalf("unexpected metadata: %q %q", got.ParticipantName, got.ParticipantEmail)
	}
}

func TestCreateSessionRequiresParticipant(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.CreateSession(context.Background(), "   ", "", ""); err != chat.ErrParticipantRequired {
		t.Fatalf("expected ErrParticipantRequired, got %v", err)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.GetSession(context.Background(), "missing"); err != chat.ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestAppendOrdering(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "user_1000", "", "")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	contents := []string{"first", "second", "third"}
	for _, c := range contents {
		if _, err := svc.AppendMessage(ctx, session.ID, chatmodel.SenderUser, "", c); err != nil {
			t.Fatalf("AppendMessage %q err: %v", c, err)
		}
	}

	messages, err := svc.ListMessages(ctx, session.ID)
	if err != nil {
		t.Fatalf("ListMessages err: %v", err)
	}
	if len(messages) != len(contents) {
		t.Fatalf("expected %d messages, got %d", len(contents), len(messages))
	}
	for i, m := range messages {
		if m.Content != contents[i] {
			t.Fatalf("message %d out of order: got %q want %q", i, m.Content, contents[i])
		}
		if i > 0 && m.CreatedAt.Before(messages[i-1].CreatedAt) {
			t.Fatalf("createdAt went backwards at index %d", i)
		}
	}
}

func TestAppendMissingSession(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.AppendMessage(ctx, "missing", chatmodel.SenderUser, "", "hello"); err != chat.ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestAppendEmptyContent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "user_1000", "", "")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	if _, err := svc.AppendMessage(ctx, session.ID, chatmodel.SenderUser, "", "   \t\n"); err != chat.ErrEmptyContent {
		t.Fatalf("expected ErrEmptyContent, got %v", err)
	}

	messages, err := svc.ListMessages(ctx, session.ID)
	if err != nil {
		t.Fatalf("ListMessages err: %v", err)
	}
	if len(messages) != 0 {
		t.Fatalf("expected empty log, got %d messages", len(messages))
	}
}

func TestAppendInvalidSender(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "user_1000", "", "")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	if _, err := svc.AppendMessage(ctx, session.ID, "robot", "", "hello"); err != chat.ErrInvalidSender {
		t.Fatalf("expected ErrInvalidSender, got %v", err)
	}
}

func TestAppendTouchesUpdatedAt(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "user_1000", "", "")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	message, err := svc.AppendMessage(ctx, session.ID, chatmodel.SenderUser, "", "hello")
	if err != nil {
		t.Fatalf("AppendMessage err: %v", err)
	}

	got, err := svc.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession err: %v", err)
	}
	if got.UpdatedAt.Before(session.UpdatedAt) {
		t.Fatal("expected updatedAt to move forward on append")
	}
	if diff := got.UpdatedAt.Sub(message.CreatedAt); diff < -time.Second || diff > time.Second {
		t.Fatalf("expected updatedAt %v to track message createdAt %v", got.UpdatedAt, message.CreatedAt)
	}
}

func TestListMessagesEmptySession(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "user_1000", "", "")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	messages, err := svc.ListMessages(ctx, session.ID)
	if err != nil {
		t.Fatalf("expected no error for empty session, got %v", err)
	}
	if messages == nil || len(messages) != 0 {
		t.Fatalf("expected empty slice, got %v", messages)
	}
}

func TestListMessagesUnknownSession(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.ListMessages(context.Background(), "missing"); err != chat.ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestMarkReadIdempotent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "user_1000", "", "")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}
	message, err := svc.AppendMessage(ctx, session.ID, chatmodel.SenderUser, "", "hello")
	if err != nil {
		t.Fatalf("AppendMessage err: %v", err)
	}
	if message.IsRead {
		t.Fatal("expected new message to start unread")
	}

	first, err := svc.MarkRead(ctx, message.ID)
	if err != nil {
		t.Fatalf("MarkRead err: %v", err)
	}
	second, err := svc.MarkRead(ctx, message.ID)
	if err != nil {
		t.Fatalf("second MarkRead err: %v", err)
	}
	if !first.IsRead || !second.IsRead {
		t.Fatal("expected message to be read after MarkRead")
	}
	if first.ID != second.ID || first.Seq != second.Seq {
		t.Fatal("expected identical message state from repeated MarkRead")
	}
}

func TestMarkReadNotFound(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.MarkRead(context.Background(), "missing"); err != chat.ErrMessageNotFound {
		t.Fatalf("expected ErrMessageNotFound, got %v", err)
	}
}

func TestListSessionsOrderedByActivity(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	older, err := svc.CreateSession(ctx, "user_1", "", "")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}
	newer, err := svc.CreateSession(ctx, "user_2", "", "")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	// A new message makes the older session the most recently active.
	if _, err := svc.AppendMessage(ctx, older.ID, chatmodel.SenderUser, "", "bump"); err != nil {
		t.Fatalf("AppendMessage err: %v", err)
	}

	sessions, err := svc.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions err: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].ID != older.ID {
		t.Fatalf("expected bumped session first, got %s", sessions[0].ID)
	}
	if sessions[1].ID != newer.ID {
		t.Fatalf("expected idle session second, got %s", sessions[1].ID)
	}
}

func TestSetStatus(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "user_1000", "", "")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	closed, err := svc.SetStatus(ctx, session.ID, chatmodel.StatusClosed)
	if err != nil {
		t.Fatalf("SetStatus err: %v", err)
	}
	if closed.Status != chatmodel.StatusClosed {
		t.Fatalf("expected closed status, got %s", closed.Status)
	}
	if closed.UpdatedAt.Before(session.UpdatedAt) {
		t.Fatal("expected updatedAt to move forward on status change")
	}

	if _, err := svc.SetStatus(ctx, session.ID, "archived"); err != chat.ErrInvalidStatus {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if _, err := svc.SetStatus(ctx, "missing", chatmodel.StatusClosed); err != chat.ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestConcurrentAppendsSameSession(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "user_1000", "", "")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	const perWriter = 10
	var wg sync.WaitGroup
	for w := 0; w < 2; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				if _, err := svc.AppendMessage(ctx, session.ID, chatmodel.SenderUser, "", fmt.Sprintf("w%d-%d", w, i)); err != nil {
					t.Errorf("AppendMessage err: %v", err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	messages, err := svc.ListMessages(ctx, session.ID)
	if err != nil {
		t.Fatalf("ListMessages err: %v", err)
	}
	if len(messages) != 2*perWriter {
		t.Fatalf("expected %d messages, got %d", 2*perWriter, len(messages))
	}
	for i := 1; i < len(messages); i++ {
		if messages[i].CreatedAt.Before(messages[i-1].CreatedAt) {
			t.Fatalf("createdAt went backwards at index %d", i)
		}
	}
}
