package domain

import "github.com/google/uuid"

// Typed identifiers keep user and document references from being mixed up at
// compile time. They are plain UUIDs underneath so stores can persist them
// without conversion helpers.
type (
	UserID     uuid.UUID
	DocumentID uuid.UUID
)

// NewUserID returns a fresh random user identifier.
func NewUserID() UserID {
	return UserID(uuid.New())
}

// ParseUserID validates and converts a string form user ID.
func ParseUserID(s string) (UserID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return UserID{}, err
	}
	return UserID(u), nil
}

func (u UserID) String() string {
	return uuid.UUID(u).String()
}

// MarshalText renders the ID in canonical UUID form so JSON encodes it as a
// string rather than a byte array.
func (u UserID) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

func (u *UserID) UnmarshalText(text []byte) error {
	parsed, err := uuid.Parse(string(text))
	if err != nil {
		return err
	}
	*u = UserID(parsed)
	return nil
}

// IsNil reports whether the ID is the zero UUID.
func (u UserID) IsNil() bool {
	return uuid.UUID(u) == uuid.Nil
}

// NewDocumentID returns a fresh random document identifier. Document IDs are
// assigned exactly once at creation and never reassigned.
func NewDocumentID() DocumentID {
	return DocumentID(uuid.New())
}

// ParseDocumentID validates and converts a string form document ID.
func ParseDocumentID(s string) (DocumentID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return DocumentID{}, err
	}
	return DocumentID(u), nil
}

func (d DocumentID) String() string {
	return uuid.UUID(d).String()
}

// MarshalText renders the ID in canonical UUID form so JSON encodes it as a
// string rather than a byte array.
func (d DocumentID) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *DocumentID) UnmarshalText(text []byte) error {
	parsed, err := uuid.Parse(string(text))
	if err != nil {
		return err
	}
	*d = DocumentID(parsed)
	return nil
}

// IsNil reports whether the ID is the zero UUID.
func (d DocumentID) IsNil() bool {
	return uuid.UUID(d) == uuid.Nil
}
