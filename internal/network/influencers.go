package network

// SelectInfluencers returns every node whose degree strictly exceeds twice
// the graph's mean degree, in ascending node order. Returns ErrEmptyGraph
// for a graph with no nodes.
func SelectInfluencers(g *Graph) ([]int, error) {
	mean, err := g.MeanDegree()
	if err != nil {
		return nil, err
	}
	threshold := 2 * mean

	var influencers []int
	for v := 0; v < g.NodeCount(); v++ {
		if float64(g.Degree(v)) > threshold {
			influencers = append(influencers, v)
		}
	}
	return influencers, nil
}
