// Copyright 2025 The Waterpoint Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/waterpoint/waterpoint/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
