// SPDX-License-Identifier: Apache-2.0

package share

import (
	"crypto/sha256"
	"encoding/hex"
)

// maxNameLen is the DNS-1123 subdomain limit for object names.
const maxNameLen = 253

// SharedVolumeName derives the name of the volume exposing the source
// claim's storage in the target namespace. The mapping is a pure
// function of its inputs, so repeated shares of the same pair always
// address the same object and create-if-absent gives exactly-once
// creation.
func SharedVolumeName(srcNamespace, srcClaim, targetNamespace string) string {
	name := "shared-" + srcNamespace + "-" + srcClaim + "-" + targetNamespace
	if len(name) <= maxNameLen {
		return name
	}
	// Overlong names keep a deterministic hash suffix so the mapping
	// stays pure after truncation.
	sum := sha256.Sum256([]byte(name))
	suffix := hex.EncodeToString(sum[:])[:10]
	return name[:maxNameLen-11] + "-" + suffix
}
