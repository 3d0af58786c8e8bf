// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package calling

import (
	"fmt"
	"regexp"
)

// E.164: a plus, a non-zero leading digit, at most 15 digits total.
var phonePattern = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

// ValidateNumber rejects anything that is not an E.164 phone number.
func ValidateNumber(number string) error {
	if number == "" {
		return fmt.Errorf("phone number is empty")
	}
	if !phonePattern.MatchString(number) {
		return fmt.Errorf("phone number %q is not in E.164 form (+14255550123)", number)
	}
	return nil
}
