package media

import (
	"errors"
	"fmt"
)

// ErrorKind classifies capture-device acquisition failures. Each kind maps to
// a distinct user-facing remediation, because the fix differs: granting
// permission, plugging in hardware, and closing another app are different
// instructions. None of these kinds is fatal to the hosting UI.
type ErrorKind string

const (
	KindPermissionDenied         ErrorKind = "permission_denied"
	KindDeviceNotFound           ErrorKind = "device_not_found"
	KindDeviceBusy               ErrorKind = "device_busy"
	KindConstraintsUnsatisfiable ErrorKind = "constraints_unsatisfiable"
	KindEnvironmentInsecure      ErrorKind = "environment_insecure"
	KindUnsupported              ErrorKind = "unsupported"
)

// Remediation returns the actionable user-facing message for this kind.
func (k ErrorKind) Remediation() string {
	switch k {
	case KindPermissionDenied:
		return "Camera/microphone access was denied. Allow access in your browser or system settings and retry."
	case KindDeviceNotFound:
		return "No camera or microphone was found. Connect a device and retry."
	case KindDeviceBusy:
		return "The device is in use by another application. Close it and retry."
	case KindConstraintsUnsatisfiable:
		return "The device cannot satisfy the requested quality settings. Retrying with reduced settings may help."
	case KindEnvironmentInsecure:
		return "Device access requires a secure (HTTPS or localhost) context."
	case KindUnsupported:
		return "This platform does not support camera/microphone capture."
	default:
		return "Device acquisition failed. Check your camera and microphone and retry."
	}
}

// AcquireError is the only error type surfaced by Manager.Acquire.
type AcquireError struct {
	Kind ErrorKind

	// Device names what was being acquired: "camera", "microphone", or both.
	Device string

	Err error
}

func (e *AcquireError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("media: %s acquisition failed (%s): %v", e.Device, e.Kind, e.Err)
	}
	return fmt.Sprintf("media: %s acquisition failed (%s)", e.Device, e.Kind)
}

func (e *AcquireError) Unwrap() error { return e.Err }

// Remediation returns the user-facing message for this failure.
func (e *AcquireError) Remediation() string { return e.Kind.Remediation() }

// KindOf extracts the ErrorKind from err, or "" when err is not an
// acquisition failure.
func KindOf(err error) ErrorKind {
	var ae *AcquireError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// retryWithMinimal reports whether the failure class is worth one retry with
// the minimal constraint set.
func retryWithMinimal(k ErrorKind) bool {
	return k == KindConstraintsUnsatisfiable
}
