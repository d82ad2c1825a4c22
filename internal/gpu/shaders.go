//go:build !nogpu

package gpu

import (
	_ "embed"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/hdmiview"
)

//go:embed shaders/yuv.wgsl
var yuvShaderSource string

// yuvUniformSize is the byte size of the conversion uniform.
// Layout: swap, matrix, full_range, pad (4 × u32).
const yuvUniformSize = 16

// compileWGSL compiles WGSL source to little-endian SPIR-V words.
func compileWGSL(source string) ([]uint32, error) {
	if source == "" {
		return nil, errors.New("gpu: empty shader source")
	}
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("compile shader: %w", err)
	}
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("compile shader: SPIR-V length %d not word aligned", len(spirvBytes))
	}
	code := make([]uint32, len(spirvBytes)/4)
	for i := range code {
		code[i] = binary.LittleEndian.Uint32(spirvBytes[i*4:])
	}
	return code, nil
}

// createShaderModule wraps source in a HAL shader module. With spirv set
// the WGSL is compiled ahead of time by naga, otherwise the backend
// translates it.
func createShaderModule(device hal.Device, label, source string, spirv bool) (hal.ShaderModule, error) {
	if !spirv {
		return device.CreateShaderModule(&hal.ShaderModuleDescriptor{
			Label:  label,
			Source: hal.ShaderSource{WGSL: source},
		})
	}
	code, err := compileWGSL(source)
	if err != nil {
		return nil, err
	}
	return device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{SPIRV: code},
	})
}

// makeYUVUniform encodes the conversion toggles for the fragment shader.
func makeYUVUniform(t hdmiview.Toggles) []byte {
	buf := make([]byte, yuvUniformSize)
	if t.Swap {
		binary.LittleEndian.PutUint32(buf[0:], 1)
	}
	if t.Matrix == hdmiview.MatrixBT601 {
		binary.LittleEndian.PutUint32(buf[4:], 1)
	}
	if t.Range == hdmiview.RangeFull {
		binary.LittleEndian.PutUint32(buf[8:], 1)
	}
	return buf
}
