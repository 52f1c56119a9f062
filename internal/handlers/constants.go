package handlers

// Client-facing error messages
const (
	ErrMissingToken        = "Missing token"
	ErrInvalidToken        = "Invalid token"
	ErrInvalidCredentials  = "Invalid credentials"
	ErrInvalidJSON         = "Invalid JSON body"
	ErrEmailTaken          = "Email already registered"
	ErrAlreadyInFamily     = "Already in a family"
	ErrNoFamily            = "No family"
	ErrCreateFamilyFirst   = "Create a family first"
	ErrNoFamilySelected    = "No family selected"
	ErrInvalidInviteToken  = "Invalid or expired token"
	ErrItemNotFound        = "Item not found"
	ErrNoFieldsToUpdate    = "No fields to update"
	ErrAdminOnly           = "Only the family admin can do this"
	ErrNotFound            = "Not found"
	ErrTooManyAttempts     = "Too many attempts, try again later"
	ErrInternalServerError = "Internal server error"

	maxBodyBytes = 1 << 20
)
