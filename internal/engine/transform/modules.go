package transform

import (
	"encoding/json"
	"fmt"
	"strings"
)

// wrapRefresh brackets a module that registers components. The header swaps
// in registration hooks scoped to url; the footer restores the previous
// hooks and asks the runtime for a coalesced refresh.
func wrapRefresh(url, code string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "import * as RefreshRuntime from %s;\n", jsString(RefreshPath))
	b.WriteString("const prevRefreshReg = window.$RefreshReg$;\n")
	b.WriteString("const prevRefreshSig = window.$RefreshSig$;\n")
	fmt.Fprintf(&b, "window.$RefreshReg$ = (type, id) => RefreshRuntime.register(type, %s + \" \" + id);\n", jsString(url))
	b.WriteString("window.$RefreshSig$ = RefreshRuntime.createSignatureFunctionForTransform;\n")
	b.WriteString(code)
	if !strings.HasSuffix(code, "\n") {
		b.WriteByte('\n')
	}
	b.WriteString("window.$RefreshReg$ = prevRefreshReg;\n")
	b.WriteString("window.$RefreshSig$ = prevRefreshSig;\n")
	b.WriteString("RefreshRuntime.enqueueUpdate();\n")
	return b.String()
}

// styleModule injects css under id and exports the scoped class names of a
// CSS module.
func styleModule(id, css string, exports map[string]string, order []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "import { updateStyle } from %s;\n", jsString(ClientPath))
	fmt.Fprintf(&b, "updateStyle(%s, %s);\n", jsString(id), jsString(css))
	if order == nil {
		return b.String()
	}
	b.WriteString("export default {")
	for i, local := range order {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %s", jsString(local), jsString(exports[local]))
	}
	b.WriteString("};\n")
	return b.String()
}

// assetModule exports the served URL of a file imported from a script.
func assetModule(url string) string {
	return "export default " + jsString(url) + ";\n"
}

func jsString(s string) string {
	out, _ := json.Marshal(s)
	return string(out)
}

// exportSignature summarises the export set of a CSS module. Values are
// derived from the path, so keys are enough.
func exportSignature(order []string) string {
	return strings.Join(order, ",")
}
