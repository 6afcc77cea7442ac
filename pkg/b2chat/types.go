package b2chat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Pagination describes where a page sits in an export. HasNextPage is
// computed client-side from total/exported because the endpoints do not
// return it directly.
type Pagination struct {
	Total       int  `json:"total"`
	Exported    int  `json:"exported"`
	HasNextPage bool `json:"has_next_page"`
}

// ContactsQuery are the parameters for the contacts export endpoint. Date
// bounds are sent with day granularity (the endpoint accepts nothing finer).
type ContactsQuery struct {
	Offset      int
	Limit       int
	UpdatedFrom *time.Time
	UpdatedTo   *time.Time
}

// ChatsQuery are the parameters for the chats export endpoint.
type ChatsQuery struct {
	Offset        int
	Limit         int
	DateRangeFrom *time.Time
	DateRangeTo   *time.Time
}

// ContactTag is one tag assignment on an exported contact. AssignedAt is
// passed through untouched; the upstream sends epoch numbers or strings
// depending on account age.
type ContactTag struct {
	Name       string          `json:"name"`
	AssignedAt json.RawMessage `json:"assigned_at,omitempty"`
}

// ContactTagList tolerates tag elements given as plain strings or as
// {name, assigned_at} objects.
type ContactTagList []ContactTag

// UnmarshalJSON implements json.Unmarshaler.
func (l *ContactTagList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*l = nil
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	var elements []json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil {
		return fmt.Errorf("expected tag list, got %s", data)
	}
	out := make(ContactTagList, 0, len(elements))
	for _, el := range elements {
		el = bytes.TrimSpace(el)
		if len(el) == 0 || bytes.Equal(el, []byte("null")) {
			continue
		}
		if el[0] == '"' {
			var name string
			if err := json.Unmarshal(el, &name); err != nil {
				return err
			}
			if name = strings.TrimSpace(name); name != "" {
				out = append(out, ContactTag{Name: name})
			}
			continue
		}
		var tag ContactTag
		if err := json.Unmarshal(el, &tag); err != nil {
			return fmt.Errorf("expected tag string or object, got %s", el)
		}
		if tag.Name = strings.TrimSpace(tag.Name); tag.Name != "" {
			out = append(out, tag)
		}
	}
	*l = out
	return nil
}

// Contact is one record from the contacts export endpoint after
// normalization. Opaque documents (custom attributes) pass through as raw
// JSON; everything else is coerced to a single canonical shape.
type Contact struct {
	ContactID        FlexString      `json:"contact_id"`
	FullName         string          `json:"fullname,omitempty"`
	Mobile           string          `json:"mobile,omitempty"`
	Landline         string          `json:"landline,omitempty"`
	Email            string          `json:"email,omitempty"`
	Identification   string          `json:"identification,omitempty"`
	Address          string          `json:"address,omitempty"`
	City             string          `json:"city,omitempty"`
	Country          string          `json:"country,omitempty"`
	Company          string          `json:"company,omitempty"`
	CustomAttributes json.RawMessage `json:"custom_attributes,omitempty"`
	Tags             ContactTagList  `json:"tags,omitempty"`
	MerchantID       FlexString      `json:"merchant_id,omitempty"`
	CreatedAt        FlexTime        `json:"created_at"`
	UpdatedAt        FlexTime        `json:"updated_at"`
}

// ChatAgent is the agent reference embedded in an exported chat. The
// upstream sends either a bare name string or an object.
type ChatAgent struct {
	Name     string `json:"name,omitempty"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *ChatAgent) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*a = ChatAgent{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		a.Name = strings.TrimSpace(name)
		return nil
	}
	var obj struct {
		Name     string `json:"name"`
		FullName string `json:"full_name"`
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("expected agent string or object, got %s", data)
	}
	a.Name = strings.TrimSpace(obj.Name)
	if a.Name == "" {
		a.Name = strings.TrimSpace(obj.FullName)
	}
	a.Username = strings.TrimSpace(obj.Username)
	a.Email = strings.TrimSpace(obj.Email)
	return nil
}

// IsZero reports whether no agent data was present.
func (a *ChatAgent) IsZero() bool {
	return a == nil || (a.Name == "" && a.Username == "" && a.Email == "")
}

// ChatContact is the contact reference embedded in an exported chat. Only
// the fields the chat payload carries are present; a contact created from
// this data is a stub until the contacts endpoint fills it in.
type ChatContact struct {
	ID     FlexString `json:"id,omitempty"`
	Name   string     `json:"name,omitempty"`
	Mobile string     `json:"mobile,omitempty"`
	Email  string     `json:"email,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *ChatContact) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*c = ChatContact{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		c.Name = strings.TrimSpace(name)
		return nil
	}
	var obj struct {
		ID        FlexString `json:"id"`
		ContactID FlexString `json:"contact_id"`
		Name      string     `json:"name"`
		FullName  string     `json:"fullname"`
		Mobile    string     `json:"mobile"`
		Phone     string     `json:"phone"`
		Email     string     `json:"email"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("expected contact string or object, got %s", data)
	}
	c.ID = obj.ID
	if c.ID == "" {
		c.ID = obj.ContactID
	}
	c.Name = strings.TrimSpace(obj.Name)
	if c.Name == "" {
		c.Name = strings.TrimSpace(obj.FullName)
	}
	c.Mobile = strings.TrimSpace(obj.Mobile)
	if c.Mobile == "" {
		c.Mobile = strings.TrimSpace(obj.Phone)
	}
	c.Email = strings.TrimSpace(obj.Email)
	return nil
}

// IsZero reports whether no contact data was present.
func (c *ChatContact) IsZero() bool {
	return c == nil || (c.ID == "" && c.Name == "" && c.Mobile == "" && c.Email == "")
}

// ChatDepartment is the department reference embedded in an exported chat.
type ChatDepartment struct {
	Code     FlexString `json:"code,omitempty"`
	Name     string     `json:"name,omitempty"`
	IsActive *bool      `json:"is_active,omitempty"`
	IsLeaf   *bool      `json:"is_leaf,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *ChatDepartment) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*d = ChatDepartment{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		name = strings.TrimSpace(name)
		d.Code = FlexString(name)
		d.Name = name
		return nil
	}
	var obj struct {
		Code     FlexString `json:"code"`
		ID       FlexString `json:"id"`
		Name     string     `json:"name"`
		IsActive *bool      `json:"is_active"`
		IsLeaf   *bool      `json:"is_leaf"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("expected department string or object, got %s", data)
	}
	d.Code = obj.Code
	if d.Code == "" {
		d.Code = obj.ID
	}
	d.Name = strings.TrimSpace(obj.Name)
	if d.Name == "" {
		d.Name = d.Code.String()
	}
	d.IsActive = obj.IsActive
	d.IsLeaf = obj.IsLeaf
	return nil
}

// IsZero reports whether no department data was present.
func (d *ChatDepartment) IsZero() bool {
	return d == nil || (d.Code == "" && d.Name == "")
}

// ChatMessage is one message within an exported chat, in upstream order.
type ChatMessage struct {
	Text        string   `json:"text,omitempty"`
	Type        string   `json:"type,omitempty"`
	Incoming    bool     `json:"incoming"`
	Timestamp   FlexTime `json:"timestamp"`
	Caption     string   `json:"caption,omitempty"`
	ImageURL    string   `json:"image_url,omitempty"`
	FileURL     string   `json:"file_url,omitempty"`
	Broadcasted bool     `json:"broadcasted,omitempty"`
}

// Chat is one record from the chats export endpoint after normalization.
// Status is already canonical; provider is left as received and mapped
// during transform.
type Chat struct {
	ChatID          FlexString      `json:"chat_id"`
	Provider        string          `json:"provider,omitempty"`
	Status          string          `json:"status,omitempty"`
	Alias           string          `json:"alias,omitempty"`
	Tags            FlexStringList  `json:"tags,omitempty"`
	Agent           *ChatAgent      `json:"agent,omitempty"`
	Contact         *ChatContact    `json:"contact,omitempty"`
	Department      *ChatDepartment `json:"department,omitempty"`
	CreatedAt       FlexTime        `json:"created_at"`
	OpenedAt        FlexTime        `json:"opened_at"`
	PickedUpAt      FlexTime        `json:"picked_up_at"`
	ClosedAt        FlexTime        `json:"closed_at"`
	Duration        FlexDuration    `json:"duration"`
	PollStartedAt   FlexTime        `json:"poll_started_at"`
	PollCompletedAt FlexTime        `json:"poll_completed_at"`
	PollAbandonedAt FlexTime        `json:"poll_abandoned_at"`
	PollResponse    json.RawMessage `json:"poll_response,omitempty"`
	Messages        []ChatMessage   `json:"messages,omitempty"`
}

// ContactRecord is one contact as staged for the transform. When the record
// failed normalization, Contact is nil, Err holds the cause and Raw keeps
// the original bytes so the failure is visible in the staging table.
type ContactRecord struct {
	Contact *Contact
	Raw     json.RawMessage
	Err     error
}

// UpstreamID returns the record's upstream identifier, empty when the
// record did not normalize or carried no id.
func (r *ContactRecord) UpstreamID() string {
	if r.Contact == nil {
		return ""
	}
	return r.Contact.ContactID.String()
}

// ChatRecord is one chat as staged for the transform.
type ChatRecord struct {
	Chat *Chat
	Raw  json.RawMessage
	Err  error
}

// UpstreamID returns the record's upstream identifier, empty when the
// record did not normalize or carried no id.
func (r *ChatRecord) UpstreamID() string {
	if r.Chat == nil {
		return ""
	}
	return r.Chat.ChatID.String()
}

// ContactsPage is one fetched page of the contacts export.
type ContactsPage struct {
	Records    []ContactRecord
	Pagination Pagination
	TraceID    string
}

// ChatsPage is one fetched page of the chats export.
type ChatsPage struct {
	Records    []ChatRecord
	Pagination Pagination
}
