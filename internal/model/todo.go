package model

import "time"

// Todo is a todo entry as the server returns it. ID and CreatedAt are
// assigned by the server and never changed by the client.
type Todo struct {
	ID          int64     `json:"id"`
	Text        string    `json:"text"`
	IsCompleted bool      `json:"isCompleted"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewTodo is the create payload.
type NewTodo struct {
	Text        string `json:"text"`
	IsCompleted bool   `json:"isCompleted"`
}

// TodoPatch is a partial update; only non-nil fields go on the wire.
type TodoPatch struct {
	Text        *string `json:"text,omitempty"`
	IsCompleted *bool   `json:"isCompleted,omitempty"`
}

// TextPatch builds a patch that only replaces the text.
func TextPatch(text string) TodoPatch {
	return TodoPatch{Text: &text}
}

// CompletionPatch builds a patch that only sets the completion flag.
func CompletionPatch(done bool) TodoPatch {
	return TodoPatch{IsCompleted: &done}
}

// Stats counts completed and pending todos.
func Stats(todos []Todo) (done, pending int) {
	for _, t := range todos {
		if t.IsCompleted {
			done++
		} else {
			pending++
		}
	}
	return
}

// Find returns the todo with the given id.
func Find(todos []Todo, id int64) (Todo, bool) {
	for _, t := range todos {
		if t.ID == id {
			return t, true
		}
	}
	return Todo{}, false
}
