package domain

// EventCode is the index of an event in a user's registration array.
type EventCode int

const (
	EventT10 EventCode = iota
	EventYantra
	EventNexus
	EventDevops

	// NumEvents is the size of the registration array.
	NumEvents = 4
)

// Valid reports whether the code addresses a slot of the registration array.
func (c EventCode) Valid() bool {
	return c >= 0 && int(c) < NumEvents
}

// RegistrationStatus is the value of a single registration slot.
type RegistrationStatus int

const (
	NotRegistered RegistrationStatus = 0
	Registered    RegistrationStatus = 1
)

// RegisteredEvents holds one registration flag per event code.
type RegisteredEvents [NumEvents]RegistrationStatus

// Event describes an entry of the event catalog.
// swagger:model Event
type Event struct {
	Code      EventCode `json:"code" yaml:"code"`
	Slug      string    `json:"slug" yaml:"slug"`
	Name      string    `json:"name" yaml:"name"`
	TeamEvent bool      `json:"team_event" yaml:"team_event"`
}

// RegistrationOp is the action requested on an event registration slot.
type RegistrationOp string

const (
	OpRegister   RegistrationOp = "register"
	OpUnregister RegistrationOp = "unregister"
)
