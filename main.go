/*


Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Command pvshare exposes one PVC's backing storage to other
// namespaces and reconciles the sharing topology against a manifest.
package main

import (
	"fmt"
	"os"
	goruntime "runtime"

	"github.com/kubestorage/pvshare/internal/cli"
)

var (
	// Version of the software at compile time.
	Version = "(unset)"
	// CommitID of the revision used to compile the software.
	CommitID = "(unset)"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("pvshare %s (commit %s, %s)\n",
			Version, CommitID, goruntime.Version())
		return
	}
	os.Exit(cli.NewApp().Run(os.Args[1:]))
}
