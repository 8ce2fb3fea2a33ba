package pagination_test

import (
	"errors"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/rms/internal/pagination"
)

func seqOf(items []int, failAt int) iter.Seq2[int, error] {
	return func(yield func(int, error) bool) {
		for i, item := range items {
			if i == failAt {
				yield(0, errors.New("store down"))
				return
			}
			if !yield(item, nil) {
				return
			}
		}
	}
}

func TestFromSliceSizeProperty(t *testing.T) {
	for n := 0; n <= 7; n++ {
		items := make([]int, n)
		for i := range items {
			items[i] = i
		}
		for page := 0; page <= 5; page++ {
			for size := 1; size <= 4; size++ {
				result := pagination.FromSlice(pagination.PageRequest{Page: page, Size: size}, items)

				want := min(size, max(0, n-page*size))
				require.Len(t, result.Content, want, "n=%d page=%d size=%d", n, page, size)
				require.EqualValues(t, n, result.TotalElements)
				require.Equal(t, page, result.PageNumber)
				require.Equal(t, size, result.PageSize)
				if want > 0 {
					require.Equal(t, page*size, result.Content[0])
				}
			}
		}
	}
}

func TestFromSlicePastEnd(t *testing.T) {
	result := pagination.FromSlice(pagination.PageRequest{Page: 10, Size: 2}, []string{"a", "b", "c"})

	assert.NotNil(t, result.Content)
	assert.Empty(t, result.Content)
	assert.EqualValues(t, 3, result.TotalElements)
	assert.Equal(t, 2, result.TotalPages())
}

func TestWindowDegenerateRequests(t *testing.T) {
	start, end := pagination.Window(pagination.PageRequest{Page: 0, Size: 0}, 5)
	assert.Equal(t, 0, end-start)

	start, end = pagination.Window(pagination.PageRequest{Page: -1, Size: 2}, 5)
	assert.Equal(t, 0, start)
	assert.Equal(t, 2, end)
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, pagination.PageResult[int]{TotalElements: 5, PageSize: 0}.TotalPages())
	assert.Equal(t, 3, pagination.PageResult[int]{TotalElements: 5, PageSize: 2}.TotalPages())
	assert.Equal(t, 2, pagination.PageResult[int]{TotalElements: 4, PageSize: 2}.TotalPages())
	assert.Equal(t, 0, pagination.PageResult[int]{TotalElements: 0, PageSize: 2}.TotalPages())
}

func TestPageRequestValidate(t *testing.T) {
	require.NoError(t, pagination.DefaultPageRequest().Validate())
	require.ErrorIs(t, pagination.PageRequest{Page: -1, Size: 2}.Validate(), pagination.ErrInvalidPage)
	require.ErrorIs(t, pagination.PageRequest{Page: 0, Size: 0}.Validate(), pagination.ErrInvalidSize)
	require.Equal(t, 6, pagination.PageRequest{Page: 3, Size: 2}.Offset())
}

func TestCollect(t *testing.T) {
	result, err := pagination.Collect(pagination.PageRequest{Page: 1, Size: 2}, seqOf([]int{1, 2, 3, 4, 5}, -1))
	require.NoError(t, err)
	require.Equal(t, []int{3, 4}, result.Content)
	require.EqualValues(t, 5, result.TotalElements)

	_, err = pagination.Collect(pagination.DefaultPageRequest(), seqOf([]int{1, 2, 3}, 1))
	require.Error(t, err)
}

func TestMap(t *testing.T) {
	page := pagination.FromSlice(pagination.PageRequest{Page: 0, Size: 2}, []int{1, 2, 3})
	mapped := pagination.Map(page, func(v int) string { return string(rune('a' + v - 1)) })

	require.Equal(t, []string{"a", "b"}, mapped.Content)
	require.EqualValues(t, 3, mapped.TotalElements)
	require.Equal(t, 2, mapped.PageSize)
}
