package service

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/TIANLI0/VoxelKit/model"
	"github.com/pkg/errors"
	"github.com/ungerik/go3d/float64/vec3"
)

const (
	stlHeaderSize = 80
	stlRecordSize = 50
	stlLabel      = "VoxelKit binary STL"
)

// STLTriangle 二进制 STL 中的一条三角形记录
type STLTriangle struct {
	Normal    [3]float32
	Vertices  [3][3]float32
	Attribute uint16
}

type stlOptions struct {
	normals bool
	header  string
}

// STLOption 写入选项
type STLOption func(*stlOptions)

// WithNormals 计算每个三角形的单位法向量，默认写零向量
func WithNormals() STLOption {
	return func(o *stlOptions) { o.normals = true }
}

// WithHeader 自定义 80 字节头部文本，超出部分截断
func WithHeader(h string) STLOption {
	return func(o *stlOptions) { o.header = h }
}

// STLSize 返回网格写成二进制 STL 后的字节数
func STLSize(m *model.Mesh) int64 {
	return stlHeaderSize + 4 + int64(len(m.Faces))*stlRecordSize
}

// WriteSTL 将网格写为二进制 STL，记录顺序与面顺序一致
func WriteSTL(w io.Writer, m *model.Mesh, opts ...STLOption) error {
	o := stlOptions{header: stlLabel}
	for _, opt := range opts {
		opt(&o)
	}
	if err := m.Validate(); err != nil {
		return errors.Wrap(err, "write stl")
	}
	if uint64(len(m.Faces)) > math.MaxUint32 {
		return errors.Errorf("write stl: %d triangles exceeds format limit", len(m.Faces))
	}

	var head [stlHeaderSize + 4]byte
	copy(head[:stlHeaderSize], o.header)
	binary.LittleEndian.PutUint32(head[stlHeaderSize:], uint32(len(m.Faces)))
	if _, err := w.Write(head[:]); err != nil {
		return errors.Wrap(err, "write stl header")
	}

	var rec [stlRecordSize]byte
	for i := range m.Faces {
		a, b, c := m.Triangle(i)
		var n vec3.T
		if o.normals {
			n = faceNormal(&a, &b, &c)
		}
		putVec(rec[0:], &n)
		putVec(rec[12:], &a)
		putVec(rec[24:], &b)
		putVec(rec[36:], &c)
		binary.LittleEndian.PutUint16(rec[48:], 0)
		if _, err := w.Write(rec[:]); err != nil {
			return errors.Wrapf(err, "write stl triangle %d", i)
		}
	}
	return nil
}

// SaveSTL 创建文件并写入网格，返回写入的字节数
func SaveSTL(path string, m *model.Mesh, opts ...STLOption) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, errors.Wrap(err, "create stl file")
	}
	bw := bufio.NewWriter(f)
	if err := WriteSTL(bw, m, opts...); err != nil {
		f.Close()
		return 0, err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return 0, errors.Wrap(err, "flush stl file")
	}
	if err := f.Close(); err != nil {
		return 0, errors.Wrap(err, "close stl file")
	}
	return STLSize(m), nil
}

// ReadSTL 读取二进制 STL，返回头部文本和三角形列表
func ReadSTL(r io.Reader) (string, []STLTriangle, error) {
	var head [stlHeaderSize + 4]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return "", nil, errors.Wrap(err, "read stl header")
	}
	header := string(trimZero(head[:stlHeaderSize]))
	count := binary.LittleEndian.Uint32(head[stlHeaderSize:])

	tris := make([]STLTriangle, 0, min(int(count), 1<<20))
	var rec [stlRecordSize]byte
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(r, rec[:]); err != nil {
			return "", nil, errors.Wrapf(err, "read stl triangle %d", i)
		}
		var t STLTriangle
		for c := 0; c < 3; c++ {
			t.Normal[c] = readFloat(rec[4*c:])
		}
		for v := 0; v < 3; v++ {
			for c := 0; c < 3; c++ {
				t.Vertices[v][c] = readFloat(rec[12+12*v+4*c:])
			}
		}
		t.Attribute = binary.LittleEndian.Uint16(rec[48:])
		tris = append(tris, t)
	}
	return header, tris, nil
}

func faceNormal(a, b, c *vec3.T) vec3.T {
	u := vec3.Sub(b, a)
	v := vec3.Sub(c, a)
	n := vec3.Cross(&u, &v)
	if n.Length() == 0 {
		return vec3.Zero
	}
	return n.Normalized()
}

func putVec(b []byte, v *vec3.T) {
	for i := 0; i < 3; i++ {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(float32(v[i])))
	}
}

func readFloat(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func trimZero(b []byte) []byte {
	for i, c := range b {
		if c == 0 {
			return b[:i]
		}
	}
	return b
}
