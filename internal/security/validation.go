package security

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// ValidPackageNameRegex allows alphanumeric, dash, underscore, dot, plus and at-sign
	ValidPackageNameRegex = regexp.MustCompile(`^[a-zA-Z0-9@._+-]+$`)

	// ValidVersionRegex allows EVR formats, including epoch and tilde/caret ordering marks
	ValidVersionRegex = regexp.MustCompile(`^[a-zA-Z0-9._+~^:-]+$`)
)

// ValidatePackageName validates a package name before it is handed to the host
func ValidatePackageName(name string) error {
	if name == "" {
		return fmt.Errorf("package name cannot be empty")
	}

	if len(name) > 255 {
		return fmt.Errorf("package name too long (max 255 characters)")
	}

	// a leading dash would be read as an option by the host tools
	if strings.HasPrefix(name, "-") {
		return fmt.Errorf("invalid package name %q: must not start with a dash", name)
	}

	if !ValidPackageNameRegex.MatchString(name) {
		return fmt.Errorf("invalid package name %q: must contain only alphanumeric, dash, underscore, dot, plus or @ characters", name)
	}

	return nil
}

// ValidateVersion validates a version string
func ValidateVersion(version string) error {
	if version == "" {
		return fmt.Errorf("invalid version: version cannot be empty")
	}

	if len(version) >= 100 {
		return fmt.Errorf("version string too long (max 100 characters)")
	}

	if strings.Contains(version, "\x00") {
		return fmt.Errorf("invalid version: contains null byte")
	}

	dangerousPatterns := []string{
		"..", "/", "\\", ";", "&", "|", "`", "$", "\n", "\r",
	}
	for _, pattern := range dangerousPatterns {
		if strings.Contains(version, pattern) {
			return fmt.Errorf("invalid version: contains dangerous pattern: %s", pattern)
		}
	}

	if strings.HasPrefix(version, "-") {
		return fmt.Errorf("invalid version %q: must not start with a dash", version)
	}

	if !ValidVersionRegex.MatchString(version) {
		return fmt.Errorf("invalid version format %q", version)
	}

	return nil
}

// ValidateRequest validates a name and an optional version
func ValidateRequest(name, version string) error {
	if err := ValidatePackageName(name); err != nil {
		return err
	}
	if version == "" {
		return nil
	}
	return ValidateVersion(version)
}

// ValidateCommandArg validates a command-line argument for safety
func ValidateCommandArg(arg string) error {
	if strings.Contains(arg, "\x00") {
		return fmt.Errorf("argument contains null byte")
	}

	dangerousChars := []string{
		";", "&", "|", "`", "$", "(", ")", "<", ">", "\n", "\r",
	}

	for _, char := range dangerousChars {
		if strings.Contains(arg, char) {
			return fmt.Errorf("argument contains dangerous character: %s", char)
		}
	}

	return nil
}
