package constant

import "time"

const (
	// BearerScheme is the expected Authorization header prefix.
	BearerScheme = "Bearer "

	// LocalUserKey and LocalDeviceIDKey are the fiber.Ctx locals keys the
	// access gate populates for downstream handlers.
	LocalUserKey     = "authUser"
	LocalDeviceIDKey = "authDeviceID"

	// ShortKeyLength is the length of generated short-link keys.
	ShortKeyLength = 6
	// SecretKeySuffixLength is the length of the random suffix appended to
	// the short key to form the admin secret key.
	SecretKeySuffixLength = 8
	// ShortKeyAlphabet restricts keys to characters safe in any URL path.
	ShortKeyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	MaxFailedLoginAttempts = 5
	FailedLoginWindow      = 15 * time.Minute
)
