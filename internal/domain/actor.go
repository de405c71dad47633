package domain

// ActorType identifies who triggered a quotation action.
type ActorType string

const (
	ActorTypeCustomer ActorType = "CUSTOMER"
	ActorTypeArtist   ActorType = "ARTIST"
	ActorTypeSystem   ActorType = "SYSTEM"
)

// Valid reports whether the actor type is one of the known values.
func (a ActorType) Valid() bool {
	switch a {
	case ActorTypeCustomer, ActorTypeArtist, ActorTypeSystem:
		return true
	}
	return false
}
