package flows

// Deps groups flow dependency sets. Root engine builds this once per request
// and delegates to the matching flow implementation.
type Deps struct {
	Credentials   CredentialDeps
	DeviceBinding DeviceBindingDeps
	Authenticate  AuthenticateDeps
	Enroll        EnrollDeps
}
