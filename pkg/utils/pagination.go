package utils

// DefaultPageSize максимальный размер страницы, который принимает API маркетплейса
const DefaultPageSize = 100

// Pagination метаданные страницы списка, как их возвращает API маркетплейса
type Pagination struct {
	Page       int   `json:"Page"`       // Номер страницы (начиная с 1)
	PageSize   int   `json:"PageSize"`   // Размер страницы
	TotalCount int   `json:"TotalCount"` // Общее количество элементов
	TotalPages int   `json:"TotalPages"` // Общее количество страниц
	ItemRange  []int `json:"ItemRange"`  // Номера первого и последнего элемента страницы
}

// NewPagination создает новый экземпляр Pagination с заданными параметрами
func NewPagination(page, pageSize int) *Pagination {
	if page < 1 {
		page = 1
	}

	if pageSize < 1 || pageSize > DefaultPageSize {
		pageSize = DefaultPageSize
	}

	return &Pagination{
		Page:     page,
		PageSize: pageSize,
	}
}

// SetTotal устанавливает общее количество элементов и пересчитывает зависимые поля
func (p *Pagination) SetTotal(totalCount int) {
	p.TotalCount = totalCount
	p.TotalPages = (totalCount + p.PageSize - 1) / p.PageSize
	first := (p.Page-1)*p.PageSize + 1
	last := min(p.Page*p.PageSize, totalCount)
	if first > last {
		p.ItemRange = []int{0, 0}
		return
	}
	p.ItemRange = []int{first, last}
}

// HasNext есть ли следующая страница
func (p *Pagination) HasNext() bool {
	return p.Page < p.TotalPages
}

// RemainingPages номера страниц после текущей
func (p *Pagination) RemainingPages() []int {
	return PageRange(p.Page+1, p.TotalPages)
}

// PageRange возвращает номера страниц от from до to включительно
// Для пустого диапазона возвращает nil
func PageRange(from, to int) []int {
	if to < from {
		return nil
	}
	pages := make([]int, 0, to-from+1)
	for page := from; page <= to; page++ {
		pages = append(pages, page)
	}
	return pages
}
