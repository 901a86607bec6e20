package mock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"
)

// Unix second fixtures for the flap buckets
var (
	bothAway    = time.Unix(0, 0)  // 0/13 even, 0/7 even
	bothPresent = time.Unix(13, 0) // 13/13 odd, 13/7 odd
	podsAway    = time.Unix(14, 0) // 14/13 odd, 14/7 even
)

func newTestGenerator(t time.Time) (*Generator, *testingclock.FakePassiveClock) {
	clk := testingclock.NewFakePassiveClock(t)
	return NewGenerator(clk, NewSeededRand(7)), clk
}

func TestAssembleTopologyNodeFlap(t *testing.T) {
	gen, clk := newTestGenerator(bothAway)

	for _, index := range []int{0, 3, 9} {
		topo := gen.AssembleTopology(index)
		assert.Len(t, topo.Nodes, 9)
		assert.NotContains(t, topo.Nodes, "node-8")
	}

	clk.SetTime(bothPresent)
	for _, index := range []int{0, 3, 9} {
		topo := gen.AssembleTopology(index)
		assert.Len(t, topo.Nodes, 10)
		assert.Contains(t, topo.Nodes, "node-8")
	}
}

func TestAssembleTopologyPodFlap(t *testing.T) {
	gen, clk := newTestGenerator(podsAway)

	topo := gen.AssembleTopology(3)
	assert.Contains(t, topo.Nodes, "node-8")
	assert.Equal(t, 138, countPods(topo))
	assert.NotContains(t, topo.Nodes["node-0"].Pods, "kube-system/sheriffTruman-0-0")
	assert.NotContains(t, topo.Nodes["node-5"].Pods, "default/bob-5-17")

	clk.SetTime(bothPresent)
	topo = gen.AssembleTopology(3)
	assert.Equal(t, 151, countPods(topo))
	assert.Contains(t, topo.Nodes["node-0"].Pods, "kube-system/sheriffTruman-0-0")
	assert.Contains(t, topo.Nodes["node-5"].Pods, "default/bob-5-17")

	clk.SetTime(bothAway)
	assert.Equal(t, 115, countPods(gen.AssembleTopology(3)))
}

func TestAssembleTopologyLayout(t *testing.T) {
	gen, _ := newTestGenerator(bothPresent)
	topo := gen.AssembleTopology(3)

	wantSlots := []int{17, 3, 12, 14, 8, 24, 6, 25, 25, 17}
	require.Len(t, topo.NodeNames, len(wantSlots))
	for i, name := range topo.NodeNames {
		node := topo.Nodes[name]
		assert.Equal(t, name, node.Name)
		assert.Len(t, node.Pods, wantSlots[i], name)

		if i < 2 {
			assert.Equal(t, "true", node.Labels["master"])
		} else {
			assert.NotContains(t, node.Labels, "master")
		}

		assert.Equal(t, "4", node.Status.Capacity.Cpu().String())
		assert.Equal(t, "32Gi", node.Status.Capacity.Memory().String())
		assert.Equal(t, "110", node.Status.Capacity.Pods().String())

		for key, pod := range node.Pods {
			assert.Equal(t, pod.Namespace+"/"+pod.Name, key)
		}
	}

	assert.Equal(t, SynthesizePod(3, 11, 3), topo.Unassigned)
}

func TestAssembleTopologyIndexesPodsByBaseName(t *testing.T) {
	gen, _ := newTestGenerator(bothPresent)
	topo := gen.AssembleTopology(5)

	indexed := 0
	for base, pods := range topo.PodsByBaseName {
		assert.Contains(t, names[:], base)
		for _, pod := range pods {
			assert.Equal(t, base, BaseName(pod.Name))
		}
		indexed += len(pods)
	}
	assert.Equal(t, countPods(topo), indexed)
}

func TestAssembleTopologyStableWithinBucket(t *testing.T) {
	gen, clk := newTestGenerator(time.Unix(26, 0))
	first := gen.AssembleTopology(2)

	// 27s is still in the same 13s and 7s buckets as 26s
	clk.SetTime(time.Unix(27, 0))
	assert.Equal(t, first, gen.AssembleTopology(2))
}

func TestEvenBucket(t *testing.T) {
	assert.True(t, evenBucket(time.Unix(0, 0), 13))
	assert.True(t, evenBucket(time.Unix(12, 0), 13))
	assert.False(t, evenBucket(time.Unix(13, 0), 13))
	assert.True(t, evenBucket(time.Unix(26, 0), 13))
	assert.False(t, evenBucket(time.Unix(-1, 0), 7))
	assert.True(t, evenBucket(time.Unix(-8, 0), 7))
}

func countPods(topo Topology) int {
	n := 0
	for _, node := range topo.Nodes {
		n += len(node.Pods)
	}
	return n
}
