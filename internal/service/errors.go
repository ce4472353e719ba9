package service

// RemoteError is a failed read, write, upload or delete against the
// datastore or object store. Op names the operation for the user.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return "failed to " + e.Op + ": " + e.Err.Error()
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

func remote(op string, err error) error {
	if err == nil {
		return nil
	}
	return &RemoteError{Op: op, Err: err}
}
