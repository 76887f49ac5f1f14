// Package testutil builds wasm modules for tests that need a real plugin
// without a wasm toolchain.
package testutil

import (
	"github.com/reglet-dev/pdk/env"
)

// Module assembles a small plugin that uses the import table directly.
// Its exports are:
//
//	echo: output_set(input_offset(), input_length()); return 0
//	fail: error_set(input_offset()); return 1
//	boom: error_set(3); return 0   (3 is never a block, so the host traps)
//	cfg:  v := config_get(input_offset()); output_set(v, length(v)); return 0
func Module() []byte {
	const (
		tI64     = 0x7e
		tI32     = 0x7f
		opCall   = 0x10
		opI32    = 0x41
		opI64    = 0x42
		opLocGet = 0x20
		opLocTee = 0x22
		opEnd    = 0x0b
	)
	const (
		fnInputOffset = iota
		fnInputLength
		fnOutputSet
		fnErrorSet
		fnConfigGet
		fnLength
		fnEcho
		fnFail
		fnBoom
		fnCfg
	)

	imp := func(field string, typeIdx byte) []byte {
		return cat(str(env.ModuleName), str(field), []byte{0x00, typeIdx})
	}
	exp := func(field string, fn byte) []byte {
		return cat(str(field), []byte{0x00, fn})
	}
	body := func(locals []byte, code ...byte) []byte {
		b := cat(locals, code)
		return cat(uleb(uint64(len(b))), b)
	}
	noLocals := []byte{0x00}

	return cat(
		[]byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00},
		section(1, vec(
			[]byte{0x60, 0x00, 0x01, tI64},       // 0: () -> i64
			[]byte{0x60, 0x02, tI64, tI64, 0x00}, // 1: (i64, i64) -> ()
			[]byte{0x60, 0x00, 0x01, tI32},       // 2: () -> i32
			[]byte{0x60, 0x01, tI64, 0x00},       // 3: (i64) -> ()
			[]byte{0x60, 0x01, tI64, 0x01, tI64}, // 4: (i64) -> i64
		)),
		section(2, vec(
			imp("input_offset", 0),
			imp("input_length", 0),
			imp("output_set", 1),
			imp("error_set", 3),
			imp("config_get", 4),
			imp("length", 4),
		)),
		section(3, vec([]byte{2}, []byte{2}, []byte{2}, []byte{2})),
		section(7, vec(
			exp("echo", fnEcho),
			exp("fail", fnFail),
			exp("boom", fnBoom),
			exp("cfg", fnCfg),
		)),
		section(10, vec(
			body(noLocals, opCall, fnInputOffset, opCall, fnInputLength, opCall, fnOutputSet, opI32, 0, opEnd),
			body(noLocals, opCall, fnInputOffset, opCall, fnErrorSet, opI32, 1, opEnd),
			body(noLocals, opI64, 3, opCall, fnErrorSet, opI32, 0, opEnd),
			body([]byte{0x01, 0x01, tI64},
				opCall, fnInputOffset, opCall, fnConfigGet, opLocTee, 0,
				opLocGet, 0, opCall, fnLength, opCall, fnOutputSet, opI32, 0, opEnd),
		)),
	)
}

func cat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func uleb(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}

func str(s string) []byte {
	return cat(uleb(uint64(len(s))), []byte(s))
}

func vec(items ...[]byte) []byte {
	return cat(uleb(uint64(len(items))), cat(items...))
}

func section(id byte, content []byte) []byte {
	return cat([]byte{id}, uleb(uint64(len(content))), content)
}
