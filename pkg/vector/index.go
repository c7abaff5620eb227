// Package vector 实现了一个带持久化的内存平坦向量索引（精确 L2 检索）。
package vector

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"nexus-chat-go/pkg/log"
)

var (
	// ErrDimensionMismatch 表示写入向量的维度与索引维度不一致。
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrNotFound 表示目标向量 ID 不存在。
	ErrNotFound = errors.New("vector id not found")
)

// indexMagic 是索引文件头部的魔数，用于加载时识别文件格式。
const indexMagic uint32 = 0x4E585649 // "NXVI"

// Result 是一次检索命中的结果。
type Result struct {
	ID       string
	Distance float32
	Metadata map[string]any
}

// slotEntry 是 sidecar 元数据文件中每个向量 ID 对应的记录。
type slotEntry struct {
	Slot     int            `json:"slot"`
	Metadata map[string]any `json:"metadata"`
}

// Index 是一个单写多读的平坦向量索引。
// 向量按插入顺序存放在槽位（slot）中；删除会重建槽位并对后续槽位重新编号，
// 以保证 ID 与向量的对应关系始终正确。每次变更都会同步落盘。
type Index struct {
	mu        sync.RWMutex
	dimension int
	indexPath string
	metaPath  string
	vectors   [][]float32          // 槽位顺序即插入顺序
	meta      map[string]slotEntry // vector id -> {slot, metadata}
}

// New 创建或加载一个向量索引。indexPath 为空时索引只存在于内存中。
func New(dimension int, indexPath string) (*Index, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("非法的索引维度: %d", dimension)
	}
	idx := &Index{
		dimension: dimension,
		indexPath: indexPath,
		meta:      make(map[string]slotEntry),
	}
	if indexPath != "" {
		idx.metaPath = metaPathFor(indexPath)
		if _, err := os.Stat(indexPath); err == nil {
			if err := idx.load(); err != nil {
				return nil, fmt.Errorf("加载向量索引失败: %w", err)
			}
			log.Infof("[VectorIndex] 已加载持久化索引, 路径: %s, 向量数: %d", indexPath, len(idx.vectors))
		}
	}
	return idx, nil
}

// metaPathFor 由索引文件路径推导 sidecar 元数据文件路径。
func metaPathFor(indexPath string) string {
	if strings.HasSuffix(indexPath, ".index") {
		return strings.TrimSuffix(indexPath, ".index") + ".json"
	}
	return indexPath + ".json"
}

// Dimension 返回索引的固定维度。
func (idx *Index) Dimension() int { return idx.dimension }

// Len 返回索引中当前存储的向量数量。
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}

// Insert 写入一个向量。若 ID 已存在则原地替换其向量与元数据（重建槽位），
// 否则追加到末尾。成功后立即落盘并返回该 ID。
func (idx *Index) Insert(id string, vec []float32, metadata map[string]any) (string, error) {
	if len(vec) != idx.dimension {
		return "", fmt.Errorf("%w: 期望 %d, 实际 %d", ErrDimensionMismatch, idx.dimension, len(vec))
	}
	if metadata == nil {
		metadata = map[string]any{}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	stored := make([]float32, len(vec))
	copy(stored, vec)

	if entry, ok := idx.meta[id]; ok {
		// 已存在：逐槽复制到新的向量表，目标槽位替换为新向量。
		rebuilt := make([][]float32, 0, len(idx.vectors))
		for i, v := range idx.vectors {
			if i == entry.Slot {
				rebuilt = append(rebuilt, stored)
			} else {
				rebuilt = append(rebuilt, v)
			}
		}
		idx.vectors = rebuilt
		idx.meta[id] = slotEntry{Slot: entry.Slot, Metadata: metadata}
	} else {
		idx.vectors = append(idx.vectors, stored)
		idx.meta[id] = slotEntry{Slot: len(idx.vectors) - 1, Metadata: metadata}
	}

	if err := idx.flushLocked(); err != nil {
		return "", err
	}
	return id, nil
}

// Search 返回与查询向量距离（平方欧氏距离）最近的至多 k 条记录，按距离升序；
// 距离相等时按插入顺序（槽位号小者优先）稳定排序。
func (idx *Index) Search(query []float32, k int) ([]Result, error) {
	if len(query) != idx.dimension {
		return nil, fmt.Errorf("%w: 期望 %d, 实际 %d", ErrDimensionMismatch, idx.dimension, len(query))
	}
	if k <= 0 {
		return nil, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	type hit struct {
		slot int
		dist float32
	}
	hits := make([]hit, 0, len(idx.vectors))
	for slot, v := range idx.vectors {
		hits = append(hits, hit{slot: slot, dist: squaredL2(query, v)})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].dist != hits[j].dist {
			return hits[i].dist < hits[j].dist
		}
		return hits[i].slot < hits[j].slot
	})
	if k > len(hits) {
		k = len(hits)
	}

	// 槽位到 ID 的反查表
	idBySlot := make(map[int]string, len(idx.meta))
	for id, entry := range idx.meta {
		idBySlot[entry.Slot] = id
	}

	results := make([]Result, 0, k)
	for _, h := range hits[:k] {
		id, ok := idBySlot[h.slot]
		if !ok {
			// 槽位与元数据不同步属于内部不变量被破坏，直接报错而不是静默跳过。
			return nil, fmt.Errorf("索引槽位 %d 缺少元数据映射", h.slot)
		}
		results = append(results, Result{ID: id, Distance: h.dist, Metadata: idx.meta[id].Metadata})
	}
	return results, nil
}

// Get 返回指定 ID 的向量副本与元数据。
func (idx *Index) Get(id string) ([]float32, map[string]any, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	entry, ok := idx.meta[id]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	v := idx.vectors[entry.Slot]
	out := make([]float32, len(v))
	copy(out, v)
	return out, entry.Metadata, nil
}

// Delete 删除指定 ID 的向量。目标不存在时返回 ErrNotFound（调用方可视为非致命）。
// 删除后所有槽位号大于被删槽位的向量重新编号，保持元数据对齐，并立即落盘。
func (idx *Index) Delete(id string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	entry, ok := idx.meta[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	removed := entry.Slot
	delete(idx.meta, id)

	rebuilt := make([][]float32, 0, len(idx.vectors)-1)
	for i, v := range idx.vectors {
		if i == removed {
			continue
		}
		rebuilt = append(rebuilt, v)
	}
	idx.vectors = rebuilt

	for vid, e := range idx.meta {
		if e.Slot > removed {
			idx.meta[vid] = slotEntry{Slot: e.Slot - 1, Metadata: e.Metadata}
		}
	}

	return idx.flushLocked()
}

// squaredL2 计算两个等长向量间的平方欧氏距离。
func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// flushLocked 将索引与 sidecar 元数据落盘。调用方必须持有写锁。
// 写入顺序：先元数据后向量文件（各自写临时文件再原子重命名）。
// 两次重命名之间崩溃会在下次加载时因计数不一致而报错，不会静默提供脏数据。
func (idx *Index) flushLocked() error {
	if idx.indexPath == "" {
		return nil
	}
	if dir := filepath.Dir(idx.indexPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("创建索引目录失败: %w", err)
		}
	}

	metaBytes, err := json.Marshal(idx.meta)
	if err != nil {
		return fmt.Errorf("序列化索引元数据失败: %w", err)
	}
	if err := writeFileAtomic(idx.metaPath, metaBytes); err != nil {
		return fmt.Errorf("写入索引元数据失败: %w", err)
	}

	if err := writeFileAtomic(idx.indexPath, idx.encodeVectors()); err != nil {
		return fmt.Errorf("写入索引文件失败: %w", err)
	}
	return nil
}

// encodeVectors 将全部向量编码为二进制布局: magic, dimension, count, 连续的 float32 行。
func (idx *Index) encodeVectors() []byte {
	buf := make([]byte, 12+len(idx.vectors)*idx.dimension*4)
	binary.LittleEndian.PutUint32(buf[0:4], indexMagic)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(idx.dimension))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(len(idx.vectors)))
	off := 12
	for _, v := range idx.vectors {
		for _, f := range v {
			binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(f))
			off += 4
		}
	}
	return buf
}

// load 从磁盘恢复索引状态，并校验向量文件与元数据文件的一致性。
func (idx *Index) load() error {
	f, err := os.Open(idx.indexPath)
	if err != nil {
		return err
	}
	defer f.Close()

	header := make([]byte, 12)
	if _, err := io.ReadFull(f, header); err != nil {
		return fmt.Errorf("读取索引文件头失败: %w", err)
	}
	if binary.LittleEndian.Uint32(header[0:4]) != indexMagic {
		return errors.New("索引文件格式无法识别")
	}
	dim := int(binary.LittleEndian.Uint32(header[4:8]))
	if dim != idx.dimension {
		return fmt.Errorf("%w: 文件维度 %d, 配置维度 %d", ErrDimensionMismatch, dim, idx.dimension)
	}
	count := int(binary.LittleEndian.Uint32(header[8:12]))

	body := make([]byte, count*dim*4)
	if _, err := io.ReadFull(f, body); err != nil {
		return fmt.Errorf("读取向量数据失败: %w", err)
	}
	vectors := make([][]float32, count)
	off := 0
	for i := 0; i < count; i++ {
		row := make([]float32, dim)
		for j := 0; j < dim; j++ {
			row[j] = math.Float32frombits(binary.LittleEndian.Uint32(body[off : off+4]))
			off += 4
		}
		vectors[i] = row
	}

	metaBytes, err := os.ReadFile(idx.metaPath)
	if err != nil {
		return fmt.Errorf("读取索引元数据失败: %w", err)
	}
	meta := make(map[string]slotEntry)
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return fmt.Errorf("解析索引元数据失败: %w", err)
	}

	if len(meta) != count {
		return fmt.Errorf("索引状态不一致: 向量文件有 %d 条, 元数据有 %d 条", count, len(meta))
	}
	seen := make(map[int]bool, len(meta))
	for id, entry := range meta {
		if entry.Slot < 0 || entry.Slot >= count {
			return fmt.Errorf("索引状态不一致: ID %s 的槽位 %d 越界", id, entry.Slot)
		}
		if seen[entry.Slot] {
			return fmt.Errorf("索引状态不一致: 槽位 %d 被多个 ID 占用", entry.Slot)
		}
		seen[entry.Slot] = true
	}

	idx.vectors = vectors
	idx.meta = meta
	return nil
}

// writeFileAtomic 先写同目录临时文件再重命名，避免写一半的文件被后续加载读到。
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
