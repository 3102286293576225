package stamp

import "fmt"

// DocumentLoadError 输入文档无法解码或结构校验失败。
// 不产生部分输出，调用方原样上报。
type DocumentLoadError struct {
	Op    string
	Cause error
}

func (e *DocumentLoadError) Error() string {
	return fmt.Sprintf("文档加载失败(%s): %v", e.Op, e.Cause)
}

func (e *DocumentLoadError) Unwrap() error { return e.Cause }

// IndexError 页索引越界（拆分点或放置页码），调用方应在调用前校验
type IndexError struct {
	Index int
	Limit int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("页索引越界: %d（有效范围 0-%d）", e.Index, e.Limit)
}
