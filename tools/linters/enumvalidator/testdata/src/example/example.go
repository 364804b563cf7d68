package example

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Status string

const (
	StatusDeclined  Status = "declined"
	StatusCommitted Status = "committed"
)

// Note has no declared constants, so it is not an enum.
type Note string

type Message struct {
	Role Role
}

type Outcome struct {
	Status Status
}

type Annotated struct {
	Note Note
}

func bad() {
	m := &Message{}
	m.Role = "reviewer" // want "enum field Role assigned string literal"

	o := &Outcome{}
	o.Status = "pending" // want "enum field Status assigned string literal"
}

func good() {
	m := &Message{}
	m.Role = RoleUser // OK: using constant

	o := &Outcome{}
	o.Status = StatusCommitted // OK: using constant
}

func alsoGood() {
	// OK: variable, not literal
	role := RoleAssistant
	m := &Message{Role: role}
	_ = m
}

func fineWithoutConstants() {
	a := &Annotated{}
	a.Note = "free text" // OK: Note has no declared constants
}
