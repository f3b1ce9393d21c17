package common

import "os"

const trueStr = "true"

// IsCI reports whether the process runs under a CI system
func IsCI() bool {
	return os.Getenv("CI") == trueStr || os.Getenv("GITHUB_ACTIONS") == trueStr
}
