package room

import (
	"github.com/wfunc/listenroom/models"
)

// Playlist 维护房间的有序播放列表。
// 不变量：所有条目的 Position 恰好构成 [0, len) 的稠密序列。
// 只会被所属房间的操作协程访问，因此不加锁。
type Playlist struct {
	items []*models.PlaylistItem
}

func NewPlaylist() *Playlist {
	return &Playlist{items: make([]*models.PlaylistItem, 0)}
}

func (p *Playlist) Len() int {
	return len(p.items)
}

// Items 返回条目副本，供广播序列化
func (p *Playlist) Items() []models.PlaylistItem {
	out := make([]models.PlaylistItem, 0, len(p.items))
	for _, it := range p.items {
		out = append(out, *it)
	}
	return out
}

// Add 追加到末尾。songId 已存在时返回 ErrValidation。
func (p *Playlist) Add(item *models.PlaylistItem) error {
	for _, it := range p.items {
		if it.SongID == item.SongID {
			return ErrValidation
		}
	}
	item.Position = len(p.items)
	p.items = append(p.items, item)
	return nil
}

// Remove 删除指定位置的条目并重排后续序号
func (p *Playlist) Remove(position int) (*models.PlaylistItem, error) {
	if position < 0 || position >= len(p.items) {
		return nil, ErrOutOfRange
	}
	removed := p.items[position]
	p.items = append(p.items[:position], p.items[position+1:]...)
	p.renumber()
	return removed, nil
}

// Reorder 单条目移动，先删后插语义
func (p *Playlist) Reorder(from, to int) error {
	if from < 0 || from >= len(p.items) || to < 0 || to >= len(p.items) {
		return ErrOutOfRange
	}
	if from == to {
		return nil
	}
	item := p.items[from]
	p.items = append(p.items[:from], p.items[from+1:]...)

	rest := append(make([]*models.PlaylistItem, 0, len(p.items)+1), p.items[:to]...)
	rest = append(rest, item)
	p.items = append(rest, p.items[to:]...)

	p.renumber()
	return nil
}

func (p *Playlist) renumber() {
	for i, it := range p.items {
		it.Position = i
	}
}
