package ports

// Service defines a long running component of the application
type Service interface {
	// Start starts the service
	Start() error

	// Stop stops the service
	Stop() error
}
