package ports

// Confirmer asks the user a yes/no question. Implementations default to "no"
// on anything that is not an explicit yes.
type Confirmer interface {
	Confirm(prompt string) bool
}
