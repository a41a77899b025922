// Copyright 2021 gotomicro
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tools

// Element 链表结点句柄
// 持有句柄的调用方可以在 O(1) 时间内移动或删除结点
type Element[T any] struct {
	prev *Element[T] // 前驱结点指针
	next *Element[T] // 后继结点指针
	list *LinkedList[T]
	// Value 结点存储的值
	Value T
}

// Prev 返回前驱结点，到达头部时返回 nil
func (e *Element[T]) Prev() *Element[T] {
	if e.list == nil || e.prev == e.list.root {
		return nil
	}
	return e.prev
}

// LinkedList 双向循环链表实现
// root 为哨兵结点，root.next 为头结点，root.prev 为尾结点
type LinkedList[T any] struct {
	root   *Element[T]
	length int
}

// NewLinkedList 创建一个空的双向循环链表
func NewLinkedList[T any]() *LinkedList[T] {
	l := &LinkedList[T]{root: &Element[T]{}}
	l.root.next, l.root.prev = l.root, l.root
	return l
}

// NewLinkedListOf 将切片按顺序转换为双向循环链表
func NewLinkedListOf[T any](ts []T) *LinkedList[T] {
	list := NewLinkedList[T]()
	for _, t := range ts {
		list.PushBack(t)
	}
	return list
}

// insertAfter 把 e 插入到 at 之后
func (l *LinkedList[T]) insertAfter(e, at *Element[T]) *Element[T] {
	e.prev = at
	e.next = at.next
	e.prev.next = e
	e.next.prev = e
	e.list = l
	l.length++
	return e
}

// unlink 把 e 从链表中摘除，但不清理 e.list
func (l *LinkedList[T]) unlink(e *Element[T]) {
	e.prev.next = e.next
	e.next.prev = e.prev
	e.next, e.prev = nil, nil
	l.length--
}

// PushFront 在链表头部插入元素
// 返回值:
//   - *Element[T]: 新结点的句柄
func (l *LinkedList[T]) PushFront(t T) *Element[T] {
	return l.insertAfter(&Element[T]{Value: t}, l.root)
}

// PushBack 在链表尾部追加元素
// 返回值:
//   - *Element[T]: 新结点的句柄
func (l *LinkedList[T]) PushBack(t T) *Element[T] {
	return l.insertAfter(&Element[T]{Value: t}, l.root.prev)
}

// MoveToFront 把结点移动到链表头部
// 不属于当前链表的结点会被忽略
func (l *LinkedList[T]) MoveToFront(e *Element[T]) {
	if e == nil || e.list != l || l.root.next == e {
		return
	}
	l.unlink(e)
	l.insertAfter(e, l.root)
}

// Remove 从链表中删除结点并返回其值
// 不属于当前链表的结点会被忽略
func (l *LinkedList[T]) Remove(e *Element[T]) T {
	if e == nil {
		var zero T
		return zero
	}
	if e.list == l {
		l.unlink(e)
		e.list = nil
	}
	return e.Value
}

// Back 返回尾结点，链表为空时返回 nil
func (l *LinkedList[T]) Back() *Element[T] {
	if l.length == 0 {
		return nil
	}
	return l.root.prev
}

// Len 获取链表的长度
func (l *LinkedList[T]) Len() int {
	return l.length
}

// Clear 清空链表
// 已有的句柄全部失效
func (l *LinkedList[T]) Clear() {
	for e := l.root.next; e != l.root; {
		next := e.next
		e.prev, e.next, e.list = nil, nil, nil
		e = next
	}
	l.root.next, l.root.prev = l.root, l.root
	l.length = 0
}

// AsSlice 将链表按从头到尾的顺序转换为切片
func (l *LinkedList[T]) AsSlice() []T {
	slice := make([]T, 0, l.length)
	for cur := l.root.next; cur != l.root; cur = cur.next {
		slice = append(slice, cur.Value)
	}
	return slice
}
