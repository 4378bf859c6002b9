// Package pipeline 定义了问题生成的分阶段流程：一个带暂停点的声明式状态图，
// 以及供内联调用的各个阶段函数。
package pipeline

import (
	"context"
	"fmt"

	"neural-trace-go/pkg/log"
)

// Stage 是图中节点的名字。
type Stage string

// End 表示没有后继节点。
const End Stage = ""

// Node 在共享状态上执行一个阶段。
type Node func(ctx context.Context, st *State) error

// Graph 是一条线性的阶段图：每个节点至多一条出边，可以在某个节点之前暂停，
// 等待后续请求携带外部输入后再从该节点恢复。
type Graph struct {
	nodes          map[Stage]Node
	edges          map[Stage]Stage
	entry          Stage
	interruptPoint Stage
}

// NewGraph 创建空图。
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[Stage]Node),
		edges: make(map[Stage]Stage),
	}
}

// AddNode 注册节点。
func (g *Graph) AddNode(name Stage, fn Node) *Graph {
	g.nodes[name] = fn
	return g
}

// AddEdge 连接 from -> to。
func (g *Graph) AddEdge(from, to Stage) *Graph {
	g.edges[from] = to
	return g
}

// SetEntry 设置入口节点。
func (g *Graph) SetEntry(name Stage) *Graph {
	g.entry = name
	return g
}

// InterruptBefore 设置暂停点：Run 执行到该节点之前停止，Resume 从该节点开始。
func (g *Graph) InterruptBefore(name Stage) *Graph {
	g.interruptPoint = name
	return g
}

// Validate 检查所有边都指向已注册的节点。
func (g *Graph) Validate() error {
	if _, ok := g.nodes[g.entry]; !ok {
		return fmt.Errorf("entry node %q not registered", g.entry)
	}
	for from, to := range g.edges {
		if _, ok := g.nodes[from]; !ok {
			return fmt.Errorf("edge from unknown node %q", from)
		}
		if _, ok := g.nodes[to]; to != End && !ok {
			return fmt.Errorf("edge to unknown node %q", to)
		}
	}
	if g.interruptPoint != End {
		if _, ok := g.nodes[g.interruptPoint]; !ok {
			return fmt.Errorf("interrupt node %q not registered", g.interruptPoint)
		}
	}
	return nil
}

// Run 从入口执行到暂停点（或图的末尾）。
func (g *Graph) Run(ctx context.Context, st *State) error {
	return g.walk(ctx, st, g.entry)
}

// Resume 从暂停点执行到图的末尾。
func (g *Graph) Resume(ctx context.Context, st *State) error {
	if g.interruptPoint == End {
		return fmt.Errorf("graph has no interrupt point to resume from")
	}
	return g.walk(ctx, st, g.interruptPoint)
}

func (g *Graph) walk(ctx context.Context, st *State, from Stage) error {
	resuming := from == g.interruptPoint
	for cur := from; cur != End; cur = g.edges[cur] {
		if cur == g.interruptPoint && !resuming {
			log.Debugf("[Graph] 在 %s 之前暂停", cur)
			return nil
		}
		resuming = false

		node, ok := g.nodes[cur]
		if !ok {
			return fmt.Errorf("node %q not registered", cur)
		}
		if err := node(ctx, st); err != nil {
			return fmt.Errorf("stage %s: %w", cur, err)
		}
		st.Trace = append(st.Trace, cur)
	}
	return nil
}
