package app

import _ "embed"

// Browser runtime served under /@rds/.
var (
	//go:embed runtime/client.js
	clientJS []byte

	//go:embed runtime/refresh.js
	refreshJS []byte
)
