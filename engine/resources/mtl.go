package resources

import (
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/umbra/engine/core"
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
)

// TextureProvider hands out cached textures. The returned map is borrowed:
// whoever keeps it must Retain it.
type TextureProvider interface {
	Acquire(path string, filter metadata.TextureFilter, wrap metadata.TextureWrap) *TextureMap
}

// ParseMTL parses a Wavefront material library. Every returned material is
// owned by the list. textures may be nil, in which case maps are skipped.
// See https://en.wikipedia.org/wiki/Wavefront_.obj_file
func ParseMTL(data string, textures TextureProvider) MaterialList {
	var (
		materials MaterialList
		mat       *Material
	)

	data = strings.ReplaceAll(data, "\r\n", "\n")
	data = strings.ReplaceAll(data, "\r", "\n")

	for i, raw := range strings.Split(data, "\n") {
		lineNo := i + 1
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		pos := strings.IndexByte(line, ' ')
		if pos <= 0 {
			core.LogErrorCode(lineNo, "Can't parse line %s", line)
			continue
		}
		what, args := line[:pos], strings.TrimSpace(line[pos+1:])

		switch what {
		case "newmtl":
			if mat != nil {
				materials = append(materials, mat)
			}
			mat = NewMaterial(args)
		case "illum", "Ka", "Ke", "Ni", "Tf":
			// the light provides ambient, the rest is not supported
		case "Kd":
			if mat != nil {
				mat.MatColor = parseVec3(args, mat.MatColor)
			}
		case "Ks":
			if mat != nil {
				mat.MatSpecColor = parseVec3(args, mat.MatSpecColor)
			}
		case "Ns":
			if mat != nil {
				mat.Shininess = parseFloat(args, mat.Shininess)
			}
		case "d":
			if mat != nil {
				mat.Alpha = parseFloat(args, mat.Alpha)
			}
		case "Tr":
			if mat != nil {
				mat.Alpha = 1.0 - parseFloat(args, 1.0-mat.Alpha)
			}
		case "map_Kd":
			if mat != nil && textures != nil {
				mat.SetDiffuseMap(textures.Acquire(args, metadata.TextureFilterModeLinear, metadata.TextureWrapRepeat))
			}
		case "map_refl":
			if mat != nil && textures != nil {
				mat.SetReflectMap(textures.Acquire(args, metadata.TextureFilterModeLinear, metadata.TextureWrapClampToEdge))
			}
		default:
			core.LogErrorCode(lineNo, "Unknown type %s", what)
		}
	}

	if mat != nil {
		materials = append(materials, mat)
	}
	return materials
}

// parseFloat reads the first number in s, keeping fallback when there is none.
func parseFloat(s string, fallback float32) float32 {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return fallback
	}
	v, err := strconv.ParseFloat(fields[0], 32)
	if err != nil {
		return fallback
	}
	return float32(v)
}

// parseVec3 reads up to three numbers; components that fail to parse keep
// their previous value.
func parseVec3(s string, fallback mgl32.Vec3) mgl32.Vec3 {
	fields := strings.Fields(s)
	out := fallback
	for i := 0; i < 3 && i < len(fields); i++ {
		v, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			break
		}
		out[i] = float32(v)
	}
	return out
}
